// Package devtools is a live inspector for reactive stores.
//
// A Hub is attached to a store as an observer. It keeps a ring buffer of
// recent engine events and the last graph snapshot published from the
// owner goroutine. A Server exposes the hub over HTTP and websocket so a
// browser or curl can follow propagation as it happens.
//
//	hub := devtools.NewHub(256)
//	store := reactive.New(reactive.WithObserver(hub))
//	// ... build cells, then after each batch of writes:
//	hub.Publish(store)
//
//	srv := devtools.NewServer(hub, devtools.WithAddr(":7070"))
//	go srv.ListenAndServe(ctx)
//
// The server never touches the store. Everything it serves was copied
// into the hub by the store's own goroutine.
package devtools
