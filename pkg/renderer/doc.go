// ABOUTME: Renderer package
// ABOUTME: Local audio playback backend for the built-in player
// Package renderer plays hub media streams on the local audio device.
//
// Stream implements builtin.Renderer: Load fetches a URL over HTTP and picks
// a decoder from the path extension or Content-Type, Play and Pause gate
// the decode loop, and Seek reopens the stream and skips decoded audio up
// to the target.
package renderer
