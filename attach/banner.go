package attach

import "fmt"

// banner renders the two-line attach greeting. escape is the configured
// detach prefix byte (1..26, conventionally 1 == Ctrl-a); letter is
// 'a' + escape - 1, the human-readable form of that byte.
func banner(ttynum int, escape byte) string {
	letter := rune('a' + escape - 1)
	return fmt.Sprintf(
		"Connected to tty %d\nType <Ctrl+%c> q to exit the console, <Ctrl+%c> <Ctrl+%c>> to enter <Ctrl+%c> itself\n",
		ttynum, letter, letter, letter, letter,
	)
}
