// KidzStage is a terminal stage for an animated question-and-answer
// companion: a child asks a question by typing or speaking, and two
// characters act out the answer scene by scene while a topic card and
// an optional preset video accompany it. Hand gestures in front of the
// camera toggle fullscreen.
//
// Usage:
//
//	kidzstage run [--config kidzstage.yaml] [--verbose]
//	kidzstage ask "why is the sky blue?"
//	kidzstage voices --lang hi-IN --prefer female
package main

import "os"

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
