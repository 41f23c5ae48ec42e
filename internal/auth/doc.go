// Package auth holds the hub's credential and session stores.
//
// UserStore keeps bcrypt password hashes in BadgerDB. SessionStore maps the
// opaque tokens handed out at login to usernames; the websocket upgrade only
// ever asks it whether a token is known.
package auth
