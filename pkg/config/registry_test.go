package config

import (
	"testing"
)

// testModule is a simple module for testing.
type testModule struct {
	name string
}

func (m *testModule) GetName() string {
	return m.name
}

func TestRegistryExactMatch(t *testing.T) {
	r := NewRegistry()

	r.Register("device", func(sec *Section) (Module, error) {
		return &testModule{name: sec.GetName()}, nil
	})

	factory := r.GetFactory("device")
	if factory == nil {
		t.Fatal("expected factory for 'device'")
	}

	factory = r.GetFactory("monitor")
	if factory != nil {
		t.Fatal("expected no factory for 'monitor'")
	}
}

func TestRegistryPrefixMatch(t *testing.T) {
	r := NewRegistry()

	r.RegisterPrefix("speed", func(sec *Section) (Module, error) {
		return &testModule{name: sec.GetName()}, nil
	})

	tests := []struct {
		name    string
		matches bool
	}{
		{"speed_controller1", true},
		{"speed_controller2", true},
		{"speed", true}, // Full prefix match also works
		{"extended", false},
	}

	for _, tt := range tests {
		factory := r.GetFactory(tt.name)
		if tt.matches && factory == nil {
			t.Errorf("expected factory for %q", tt.name)
		}
		if !tt.matches && factory != nil {
			t.Errorf("expected no factory for %q", tt.name)
		}
	}
}

func TestRegistryWithPrefixMatch(t *testing.T) {
	r := NewRegistry()

	// Named sections carrying an instance name after the kind, e.g. "[speed_controller motor1]".
	r.RegisterWithPrefix("speed_controller ", func(sec *Section) (Module, error) {
		return &testModule{name: sec.GetName()}, nil
	})

	tests := []struct {
		name    string
		matches bool
	}{
		{"speed_controller motor1", true},
		{"speed_controller lift_arm", true},
		{"speed_controller", false}, // No space and name
		{"direct_controller lights", false},
	}

	for _, tt := range tests {
		factory := r.GetFactory(tt.name)
		if tt.matches && factory == nil {
			t.Errorf("expected factory for %q", tt.name)
		}
		if !tt.matches && factory != nil {
			t.Errorf("expected no factory for %q", tt.name)
		}
	}
}

func TestRegistryLoadModules(t *testing.T) {
	data := `
[device]
path: /dev/lirc0

[speed_controller_x]
channel: 1

[speed_controller_y]
channel: 2

[extended]
channel: 3
`

	cfg, err := LoadString(data)
	if err != nil {
		t.Fatalf("LoadString failed: %v", err)
	}

	r := NewRegistry()

	r.Register("device", func(sec *Section) (Module, error) {
		return &testModule{name: sec.GetName()}, nil
	})
	r.RegisterPrefix("speed_controller", func(sec *Section) (Module, error) {
		return &testModule{name: sec.GetName()}, nil
	})
	r.Register("extended", func(sec *Section) (Module, error) {
		return &testModule{name: sec.GetName()}, nil
	})

	modules, err := r.LoadModules(cfg)
	if err != nil {
		t.Fatalf("LoadModules failed: %v", err)
	}

	expected := []string{"device", "speed_controller_x", "speed_controller_y", "extended"}
	for _, name := range expected {
		if _, ok := modules[name]; !ok {
			t.Errorf("expected module %q to be loaded", name)
		}
	}

	if len(modules) != len(expected) {
		t.Errorf("expected %d modules, got %d", len(expected), len(modules))
	}
}

func TestRegistryGetModule(t *testing.T) {
	data := `
[device]
path: /dev/lirc0
`

	cfg, err := LoadString(data)
	if err != nil {
		t.Fatalf("LoadString failed: %v", err)
	}

	r := NewRegistry()
	r.Register("device", func(sec *Section) (Module, error) {
		return &testModule{name: "device"}, nil
	})

	_, err = r.LoadModules(cfg)
	if err != nil {
		t.Fatalf("LoadModules failed: %v", err)
	}

	m := r.GetModule("device")
	if m == nil {
		t.Fatal("expected to get device module")
	}
	if m.GetName() != "device" {
		t.Errorf("expected name 'device', got %q", m.GetName())
	}

	m = r.GetModule("nonexistent")
	if m != nil {
		t.Error("expected nil for nonexistent module")
	}
}

func TestRegistryClear(t *testing.T) {
	data := `
[device]
path: /dev/lirc0
`

	cfg, err := LoadString(data)
	if err != nil {
		t.Fatalf("LoadString failed: %v", err)
	}

	r := NewRegistry()
	r.Register("device", func(sec *Section) (Module, error) {
		return &testModule{name: "device"}, nil
	})

	_, err = r.LoadModules(cfg)
	if err != nil {
		t.Fatalf("LoadModules failed: %v", err)
	}

	if r.GetModule("device") == nil {
		t.Fatal("expected device module to be loaded")
	}

	r.Clear()

	if r.GetModule("device") != nil {
		t.Error("expected device module to be cleared")
	}
}

func TestRegistryExactTakesPrecedence(t *testing.T) {
	r := NewRegistry()

	exactCalled := false
	prefixCalled := false

	r.Register("speed_controller_x", func(sec *Section) (Module, error) {
		exactCalled = true
		return &testModule{name: "exact"}, nil
	})
	r.RegisterPrefix("speed_controller", func(sec *Section) (Module, error) {
		prefixCalled = true
		return &testModule{name: "prefix"}, nil
	})

	data := `
[speed_controller_x]
channel: 1

[speed_controller_y]
channel: 2
`

	cfg, err := LoadString(data)
	if err != nil {
		t.Fatalf("LoadString failed: %v", err)
	}

	modules, err := r.LoadModules(cfg)
	if err != nil {
		t.Fatalf("LoadModules failed: %v", err)
	}

	if m, ok := modules["speed_controller_x"]; ok {
		if m.GetName() != "exact" {
			t.Error("speed_controller_x should use exact match factory")
		}
	}

	if m, ok := modules["speed_controller_y"]; ok {
		if m.GetName() != "prefix" {
			t.Error("speed_controller_y should use prefix match factory")
		}
	}

	if !exactCalled {
		t.Error("exact factory should have been called")
	}
	if !prefixCalled {
		t.Error("prefix factory should have been called")
	}
}

func TestRegistryLoadModulesOrdered(t *testing.T) {
	data := `
[speed_controller_y]
channel: 2

[device]
path: /dev/lirc0

[speed_controller_x]
channel: 1
`
	cfg, err := LoadString(data)
	if err != nil {
		t.Fatalf("LoadString failed: %v", err)
	}

	r := NewRegistry()
	r.Register("device", func(sec *Section) (Module, error) {
		return &testModule{name: sec.GetName()}, nil
	})
	r.RegisterPrefix("speed_controller", func(sec *Section) (Module, error) {
		return &testModule{name: sec.GetName()}, nil
	})

	modules, err := r.LoadModulesOrdered(cfg)
	if err != nil {
		t.Fatalf("LoadModulesOrdered failed: %v", err)
	}

	want := []string{"speed_controller_y", "device", "speed_controller_x"}
	if len(modules) != len(want) {
		t.Fatalf("got %d modules, want %d", len(modules), len(want))
	}
	for i, name := range want {
		if modules[i].GetName() != name {
			t.Errorf("modules[%d].GetName() = %q, want %q", i, modules[i].GetName(), name)
		}
	}
}

// TestDeviceProfileRegistryOrdersByFileOrder exercises the production
// registry buildDeviceProfile assembles (see device.go), confirming module
// lookup by name survives the load and that LoadModulesOrdered, which
// buildDeviceProfile uses, returns the modules in the section order the
// config file declares them, not map iteration order.
func TestDeviceProfileRegistryOrdersByFileOrder(t *testing.T) {
	data := `
[device]
path: /dev/lirc0
carrier: 38000

[speed_controller tail_light]
channel: 1
output: red

[speed_controller headlight]
channel: 2
output: blue
`
	cfg, err := LoadString(data)
	if err != nil {
		t.Fatalf("LoadString failed: %v", err)
	}

	reg := newDeviceProfileRegistry()
	modules, err := reg.LoadModules(cfg)
	if err != nil {
		t.Fatalf("LoadModules failed: %v", err)
	}

	m, ok := modules["speed_controller tail_light"].(*deviceProfileModule)
	if !ok {
		t.Fatal("expected a loaded module for [speed_controller tail_light]")
	}
	spec, ok := m.spec.(SpeedControllerSpec)
	if !ok || spec.Name != "tail_light" {
		t.Errorf("unexpected spec for tail_light module: %+v", m.spec)
	}

	ordered, err := reg.LoadModulesOrdered(cfg)
	if err != nil {
		t.Fatalf("LoadModulesOrdered failed: %v", err)
	}
	var order []string
	for _, mod := range ordered {
		order = append(order, mod.GetName())
	}
	want := []string{"device", "speed_controller tail_light", "speed_controller headlight"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i, name := range want {
		if order[i] != name {
			t.Errorf("order[%d] = %q, want %q", i, order[i], name)
		}
	}
}
