// Command chat is a terminal client for a channel chat server.
//
// # Basic Usage
//
// Log in once; the session is kept in a cookie between runs:
//
//	chat login alice
//
// Open the interactive view on a channel:
//
//	chat chat 1
//
// Configuration is read from chat.yaml (see internal/config) and
// CHANNELCHAT_* environment variables.
package main

import (
	"context"
	"fmt"
	"os"
)

func main() {
	if err := buildRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, describeFailure(err))
		os.Exit(1)
	}
}
