// Package factory provides a small generic registry used to instantiate
// pluggable modules (metrics sinks, notifiers) from configuration. A module
// is described by a type string and a map of raw settings; the registered
// factory decodes the settings and returns the implementation.
//
// Example usage:
//
//	reg := factory.NewRegistry[Notifier]()
//	reg.Register("log", func(conf map[string]any) (Notifier, error) {
//	    var c struct{ Prefix string `json:"prefix"` }
//	    if err := factory.Decode(conf, &c); err != nil {
//	        return nil, err
//	    }
//	    return newLogNotifier(c.Prefix), nil
//	})
//	n, err := reg.Create(factory.ModuleConfig{Type: "log", Conf: map[string]any{"prefix": "plan"}})
package factory
