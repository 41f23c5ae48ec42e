// Package server implements the chat hub and its HTTP surface.
//
// A Hub holds the registry of admitted connections and fans messages out to
// their outboxes. Each Client runs one read flow and one write flow. Server
// ties the hub to the websocket upgrade, file download and account routes.
package server
