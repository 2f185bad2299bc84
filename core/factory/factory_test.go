package factory

import "testing"

type sample struct {
	Addr    string
	Enabled bool
	Port    int
}

type sampleConf struct {
	Addr    string `json:"addr"`
	Enabled bool   `json:"enabled"`
	Port    int    `json:"port"`
}

func newSample(conf map[string]any) (*sample, error) {
	var c sampleConf
	if err := Decode(conf, &c); err != nil {
		return nil, err
	}
	s := sample(c)
	return &s, nil
}

func TestRegistry_Create(t *testing.T) {
	reg := NewRegistry[*sample]()
	if err := reg.Register("s", newSample); err != nil {
		t.Fatalf("register: %v", err)
	}
	inst, err := reg.Create(ModuleConfig{Type: "s", Conf: map[string]any{"addr": ":9102", "port": 3}})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if inst.Addr != ":9102" || inst.Port != 3 {
		t.Fatalf("unexpected instance %+v", inst)
	}
}

func TestDecode_WeakTypes(t *testing.T) {
	var c sampleConf
	if err := Decode(map[string]any{"enabled": "true", "port": "8080"}, &c); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !c.Enabled || c.Port != 8080 {
		t.Fatalf("unexpected decode %+v", c)
	}
}

func TestRegistry_Errors(t *testing.T) {
	reg := NewRegistry[int]()
	if err := reg.Register("x", func(map[string]any) (int, error) { return 1, nil }); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := reg.Register("x", func(map[string]any) (int, error) { return 2, nil }); err == nil {
		t.Fatal("expected duplicate error")
	}
	if err := reg.Register("y", nil); err == nil {
		t.Fatal("expected nil factory error")
	}
	if _, err := reg.Create(ModuleConfig{Type: "missing"}); err == nil {
		t.Fatal("expected unknown type error")
	}
	if got := reg.Types(); len(got) != 1 || got[0] != "x" {
		t.Fatalf("unexpected types %v", got)
	}
}
