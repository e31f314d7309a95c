// Command scanner marks learners present in the CSV attendance sheet from a barcode
// reader that types codes followed by Enter. Ctrl+C or end of input prints today's list.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"

	"tutorregister/internal/attendance"
	"tutorregister/internal/config"
	"tutorregister/internal/sheet"
)

var (
	okColor   = color.New(color.FgGreen)
	infoColor = color.New(color.FgCyan)
	warnColor = color.New(color.FgYellow)
	errColor  = color.New(color.FgRed)
)

func main() {
	cfg := config.MustLoad()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	run(ctx, os.Stdin, os.Stdout, sheet.NewScanner(cfg.SheetPath))
}

func run(ctx context.Context, in io.Reader, out io.Writer, sc *sheet.Scanner) {
	fmt.Fprintln(out, "Scan barcodes to mark attendance (IN only). Press CTRL+C to stop.")
	fmt.Fprintf(out, "   Using sheet: %s\n", sc.Path)

	lines := make(chan string)
	go func() {
		defer close(lines)
		s := bufio.NewScanner(in)
		for s.Scan() {
			select {
			case lines <- s.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		fmt.Fprint(out, "Scan Code: ")
		select {
		case <-ctx.Done():
			fmt.Fprintln(out, "\nStopped scanning.")
			showToday(out, sc)
			return
		case line, ok := <-lines:
			if !ok {
				fmt.Fprintln(out, "\nStopped scanning.")
				showToday(out, sc)
				return
			}
			markPresent(out, sc, line)
		}
	}
}

func markPresent(out io.Writer, sc *sheet.Scanner, code string) {
	res, err := sc.MarkPresent(code)
	switch {
	case errors.Is(err, attendance.ErrEmptyInput):
		errColor.Fprintln(out, "Empty scan ignored.")
		return
	case errors.Is(err, attendance.ErrMissingFile):
		errColor.Fprintf(out, "Cannot find %s. Put it next to this program or set SHEET_PATH.\n", sc.Path)
		return
	case errors.Is(err, attendance.ErrNotFound):
		errColor.Fprintln(out, "Barcode not found in the sheet.")
		fmt.Fprintf(out, "   Tip: open %s and paste this code into the 'Barcode' column for the correct student.\n", sc.Path)
		return
	case err != nil:
		errColor.Fprintf(out, "Scan failed: %v\n", err)
		return
	}

	if res.Duplicate() {
		warnColor.Fprintf(out, "Warning: %d rows share the same barcode. All will be marked.\n", len(res.Marked)+len(res.Already))
		fmt.Fprintln(out, "   (Consider ensuring barcodes are unique per student.)")
	}
	for _, e := range res.Already {
		infoColor.Fprintf(out, "%s is already marked PRESENT for %s.\n", e.Who(), res.Label)
	}
	for _, e := range res.Marked {
		okColor.Fprintf(out, "%s marked PRESENT for %s.\n", e.Who(), res.Label)
	}
}

func showToday(out io.Writer, sc *sheet.Scanner) {
	label, present, err := sc.TodayList()
	if errors.Is(err, attendance.ErrMissingFile) {
		errColor.Fprintf(out, "Cannot find %s.\n", sc.Path)
		return
	}
	if err != nil {
		errColor.Fprintf(out, "Cannot read %s: %v\n", sc.Path, err)
		return
	}

	fmt.Fprintf(out, "\nAttendance for %s: %d\n", label, len(present))
	if len(present) == 0 {
		fmt.Fprintln(out, "  (No scans yet)")
		return
	}
	for _, e := range present {
		fmt.Fprintf(out, "  - %s\n", e.Who())
	}
}
