// Package buildinfo carries the release identity stamped in by ldflags.
package buildinfo

import "fmt"

const Graffiti = " _____ ______ __      __ _____  ______\n|  __ \\| ___ \\\\ \\    / /|_   _||___  /\n| |  \\/| |_/ / \\ \\  / /   | |     / / \n| | __ |  __/   \\ \\/ /    | |    / /  \n| |_\\ \\| |       \\  /    _| |_ ./ /___\n \\____/\\_|        \\/     \\___/ \\_____/\n\n"

// overridden at release time with -ldflags "-X ...=..."
var (
	BuildTag  = "v0.0.0"
	BuildName = "gpviz"
	BuildTime = ""
)

// Banner renders the one-line identity printed at boot.
func Banner() string {
	return fmt.Sprintf("%s %s %s", BuildName, BuildTag, BuildTime)
}
