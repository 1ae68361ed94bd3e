package tracker

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// MenuItem is one numbered entry of the interactive menu.
type MenuItem struct {
	Key   string
	Title string
	Mode  Mode
}

// DefaultMenu lists the modes offered interactively. Screen tracking is only available
// non-interactively.
var DefaultMenu = []MenuItem{
	{Key: "1", Title: "Track from video file", Mode: ModeVideo},
	{Key: "2", Title: "Track from built-in webcam", Mode: ModeCamera},
	{Key: "3", Title: "Exit", Mode: ModeExit},
}

// DispatchFunc runs the tracking mode selected in the menu.
type DispatchFunc func(ctx context.Context, mode Mode) error

// RunMenu repeatedly prints menu to out, reads a choice from in and dispatches it, until the
// exit entry is chosen, in is exhausted or ctx is done. Errors from dispatch are reported to out
// and do not end the menu.
func RunMenu(ctx context.Context, in io.Reader, out io.Writer, menu []MenuItem,
	dispatch DispatchFunc) error {

	keys := make([]string, len(menu))
	for i, item := range menu {
		keys[i] = item.Key
	}
	prompt := fmt.Sprintf("Enter choice (%s): ", strings.Join(keys, ", "))

	readCtx, stopReading := context.WithCancel(ctx)
	defer stopReading()
	lines, scanErr := readLines(readCtx, in)
	for ctx.Err() == nil {
		fmt.Fprintln(out, "\n=== Select Tracking Source ===")
		for _, item := range menu {
			fmt.Fprintf(out, "%s. %s\n", item.Key, item.Title)
		}
		fmt.Fprint(out, prompt)

		var line string
		select {
		case <-ctx.Done():
			fmt.Fprintln(out)
			return nil
		case l, ok := <-lines:
			if !ok {
				fmt.Fprintln(out)
				return *scanErr
			}
			line = l
		}

		mode, ok := lookupChoice(menu, line)
		switch {
		case !ok:
			fmt.Fprintln(out, "Invalid choice. Try again.")
		case mode == ModeExit:
			fmt.Fprintln(out, "Exiting tracking loop.")
			return nil
		default:
			if err := dispatch(ctx, mode); err != nil {
				fmt.Fprintf(out, "Tracking from %s failed: %v\n", mode, err)
			}
		}
	}
	return nil
}

func lookupChoice(menu []MenuItem, choice string) (Mode, bool) {
	choice = strings.TrimSpace(choice)
	for _, item := range menu {
		if item.Key == choice {
			return item.Mode, true
		}
	}
	return ModeUnknown, false
}

// readLines scans in on its own goroutine so that a pending read does not hold up cancellation.
// The channel is closed at the end of input, after which the returned error is set. The goroutine
// stops sending once ctx is done, but a read already blocked in in only returns when in does.
func readLines(ctx context.Context, in io.Reader) (<-chan string, *error) {
	lines := make(chan string)
	var err error
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		err = scanner.Err()
	}()
	return lines, &err
}
