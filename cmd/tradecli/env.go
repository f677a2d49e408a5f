package main

import (
	"os"
)

// env returns the value of an environment variable if provided (even if empty)
// or a fallback value.
func env(name, fallback string) string {
	if v, ok := os.LookupEnv(name); ok {
		return v
	}
	return fallback
}

// tmAddrUsage is shared by all commands talking to a node.
const tmAddrUsage = "Tendermint node address. You can use TRADECLI_TM_ADDR environment variable to set it."

func defaultTmAddr() string {
	return env("TRADECLI_TM_ADDR", "http://localhost:26657")
}

func defaultKeyPath() string {
	return env("TRADECLI_PRIV_KEY", os.Getenv("HOME")+"/.tradeescrow.priv.key")
}
