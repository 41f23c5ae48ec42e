package protocol

import "fmt"

// WelcomeNotice is unicast to a connection right after its Init message.
func WelcomeNotice(username string) ChatMessage {
	return NewSystem(fmt.Sprintf("Welcome to the chat, %s!", username))
}

// JoinedNotice is broadcast when a connection becomes active.
func JoinedNotice(username string) ChatMessage {
	return NewSystem(fmt.Sprintf("%s has joined the chat.", username))
}

// LeftNotice is broadcast after a connection has been unregistered.
func LeftNotice(username string) ChatMessage {
	return NewSystem(fmt.Sprintf("%s has left the chat.", username))
}
