package config

import "github.com/azachar/lpf-go/pkg/frame"

// DeviceProfile describes one IR transmit device and the named controllers
// an application wants on it, as loaded from a config file.
//
// Example:
//
//	[device]
//	path: /dev/lirc0
//	carrier: 38000
//
//	[speed_controller motor1]
//	channel: 1
//	output: red
//
//	[extended_controller lights]
//	channel: 2
type DeviceProfile struct {
	Path    string
	Carrier int

	SpeedControllers      []SpeedControllerSpec
	DirectControllers     []DirectControllerSpec
	ComboSpeedControllers []ComboSpeedControllerSpec
	ExtendedControllers   []ExtendedControllerSpec
}

// SpeedControllerSpec names one Single Output controller to create.
type SpeedControllerSpec struct {
	Name    string
	Channel frame.Channel
	Output  frame.Output
}

// DirectControllerSpec names one Combo Direct controller to create.
type DirectControllerSpec struct {
	Name    string
	Channel frame.Channel
}

// ComboSpeedControllerSpec names one Combo PWM controller to create.
type ComboSpeedControllerSpec struct {
	Name    string
	Channel frame.Channel
}

// ExtendedControllerSpec names one Extended controller to create.
type ExtendedControllerSpec struct {
	Name    string
	Channel frame.Channel
}

// LoadDeviceProfile reads path as an INI-style config file and builds a
// DeviceProfile from its [device] and controller sections.
func LoadDeviceProfile(path string) (*DeviceProfile, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	return buildDeviceProfile(cfg)
}

// ParseDeviceProfile builds a DeviceProfile from config text already held
// in memory, for embedding a profile without a file on disk.
func ParseDeviceProfile(data string) (*DeviceProfile, error) {
	cfg, err := LoadString(data)
	if err != nil {
		return nil, err
	}
	return buildDeviceProfile(cfg)
}

// deviceProfileModule wraps a controller spec (or the [device] section
// itself) so the generic config.Registry can load a DeviceProfile the same
// way it loads any other set of named config modules: one factory per
// section kind, matched by exact name or by instance-carrying prefix.
type deviceProfileModule struct {
	name string
	spec any // *deviceSpec, SpeedControllerSpec, DirectControllerSpec, ComboSpeedControllerSpec, or ExtendedControllerSpec
}

func (m *deviceProfileModule) GetName() string { return m.name }

type deviceSpec struct {
	Path    string
	Carrier int
}

func newDeviceProfileRegistry() *Registry {
	r := NewRegistry()

	r.Register("device", func(sec *Section) (Module, error) {
		path, err := sec.Get("path")
		if err != nil {
			return nil, err
		}
		carrier, err := sec.GetInt("carrier", 38000)
		if err != nil {
			return nil, err
		}
		return &deviceProfileModule{name: sec.GetName(), spec: &deviceSpec{Path: path, Carrier: carrier}}, nil
	})
	r.RegisterWithPrefix("speed_controller ", func(sec *Section) (Module, error) {
		ch, err := sec.GetChannel("channel")
		if err != nil {
			return nil, err
		}
		output, err := sec.GetOutput("output", frame.OutputRed)
		if err != nil {
			return nil, err
		}
		spec := SpeedControllerSpec{Name: controllerInstanceName(sec), Channel: ch, Output: output}
		return &deviceProfileModule{name: sec.GetName(), spec: spec}, nil
	})
	r.RegisterWithPrefix("direct_controller ", func(sec *Section) (Module, error) {
		ch, err := sec.GetChannel("channel")
		if err != nil {
			return nil, err
		}
		spec := DirectControllerSpec{Name: controllerInstanceName(sec), Channel: ch}
		return &deviceProfileModule{name: sec.GetName(), spec: spec}, nil
	})
	r.RegisterWithPrefix("combo_speed_controller ", func(sec *Section) (Module, error) {
		ch, err := sec.GetChannel("channel")
		if err != nil {
			return nil, err
		}
		spec := ComboSpeedControllerSpec{Name: controllerInstanceName(sec), Channel: ch}
		return &deviceProfileModule{name: sec.GetName(), spec: spec}, nil
	})
	r.RegisterWithPrefix("extended_controller ", func(sec *Section) (Module, error) {
		ch, err := sec.GetChannel("channel")
		if err != nil {
			return nil, err
		}
		spec := ExtendedControllerSpec{Name: controllerInstanceName(sec), Channel: ch}
		return &deviceProfileModule{name: sec.GetName(), spec: spec}, nil
	})
	return r
}

func buildDeviceProfile(cfg *Config) (*DeviceProfile, error) {
	reg := newDeviceProfileRegistry()
	modules, err := reg.LoadModulesOrdered(cfg)
	if err != nil {
		return nil, err
	}

	profile := &DeviceProfile{}
	var sawDevice bool

	for _, mod := range modules {
		m, ok := mod.(*deviceProfileModule)
		if !ok {
			continue
		}
		switch spec := m.spec.(type) {
		case *deviceSpec:
			profile.Path = spec.Path
			profile.Carrier = spec.Carrier
			sawDevice = true
		case SpeedControllerSpec:
			profile.SpeedControllers = append(profile.SpeedControllers, spec)
		case DirectControllerSpec:
			profile.DirectControllers = append(profile.DirectControllers, spec)
		case ComboSpeedControllerSpec:
			profile.ComboSpeedControllers = append(profile.ComboSpeedControllers, spec)
		case ExtendedControllerSpec:
			profile.ExtendedControllers = append(profile.ExtendedControllers, spec)
		}
	}
	if !sawDevice {
		return nil, ErrMissingSection("device")
	}

	if err := cfg.CheckUnusedOptions(); err != nil {
		return nil, err
	}
	return profile, nil
}

// controllerInstanceName strips the "kind " prefix Registry-style section
// names carry, e.g. "speed_controller motor1" -> "motor1".
func controllerInstanceName(sec *Section) string {
	name := sec.GetName()
	for i := len(name) - 1; i >= 0; i-- {
		if name[i] == ' ' {
			return name[i+1:]
		}
	}
	return name
}
