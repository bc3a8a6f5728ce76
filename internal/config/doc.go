// Package config provides configuration parsing for rxstate.
//
// The configuration is stored in rxstate.json at the project root. Every
// field is optional; a missing file means defaults.
//
// # Configuration File Structure
//
//	{
//	  "scenarios": "scenarios/**/*.yaml",
//	  "lang": "expr",
//	  "engine": {
//	    "skipUnchanged": false,
//	    "maxDepth": 256,
//	    "maxRecomputes": 0,
//	    "maxKeyProbes": 16
//	  },
//	  "devtools": {
//	    "addr": ":7070",
//	    "eventBuffer": 256
//	  },
//	  "metrics": {
//	    "namespace": "rxstate"
//	  }
//	}
//
// # Usage
//
//	cfg, err := config.LoadOrDefault(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	store := reactive.New(cfg.StoreOptions()...)
package config
