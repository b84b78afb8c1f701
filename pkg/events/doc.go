// ABOUTME: Event routing package
// ABOUTME: Generic topics and the router that feeds them from hub events
// Package events fans hub events out to in-process subscribers.
//
// Every event reaches Router.Raw. Known names are also decoded and
// published on a typed topic. Subscribers receive only what is published
// after they subscribe.
//
// Example:
//
//	router := events.NewRouter()
//	updates, cancel := router.PlayerUpdates.Subscribe(16)
//	defer cancel()
//	for u := range updates { ... }
package events
