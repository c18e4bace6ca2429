// Package config loads the configuration of the vango-ssr server.
//
// The configuration is stored in ssr.json or ssr.yaml next to the index.html
// shell. Every field is optional.
//
// # Configuration File Structure
//
//	{
//	  "addr": ":3000",
//	  "indexFile": "index.html",
//	  "streaming": true,
//	  "basePath": "/app",
//	  "poolSize": 4,
//	  "workers": 0,
//	  "debug": false,
//	  "incremental": {
//	    "enabled": true,
//	    "invalidateAfter": "120s",
//	    "memoryLimit": 33554432,
//	    "clearCache": false,
//	    "store": {
//	      "kind": "file",
//	      "file": { "dir": ".ssr-cache" }
//	    }
//	  },
//	  "metrics": { "enabled": true, "path": "/metrics" }
//	}
//
// Store kinds are memory, file, badger, redis and s3.
//
// # Usage
//
//	cfg, err := config.Load(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Println("Listening on", cfg.Addr)
package config
