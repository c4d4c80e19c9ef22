package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/Mohsinsiddi/ronexport/internal/ui"
	"golang.org/x/term"
)

// progress prints export progress. On a terminal a single spinner line
// carries it; otherwise every step is printed on its own line.
type progress struct {
	out     io.Writer
	spinner *ui.Spinner
}

func newProgress(out io.Writer) *progress {
	f, ok := out.(*os.File)
	return newProgressFor(out, ok && term.IsTerminal(int(f.Fd())))
}

func newProgressFor(out io.Writer, interactive bool) *progress {
	p := &progress{out: out}
	if interactive {
		p.spinner = ui.NewSpinner(out, "Listing transactions…")
	}
	return p
}

func (p *progress) start() {
	if p.spinner != nil {
		p.spinner.Start()
	}
}

// stop halts the spinner if it is still running. Safe to call twice.
func (p *progress) stop() {
	if p.spinner != nil {
		p.spinner.Stop()
		p.spinner = nil
	}
}

func (p *progress) Discovered(sent, received, unique int) {
	if p.spinner != nil {
		p.spinner.SetMessage(fmt.Sprintf("Sent %d · Received %d · Processing %d transactions", sent, received, unique))
		return
	}
	fmt.Fprintf(p.out, "%s %s\n", ui.Meta("Sent:"), ui.Val(fmt.Sprint(sent)))
	fmt.Fprintf(p.out, "%s %s\n", ui.Meta("Received:"), ui.Val(fmt.Sprint(received)))
	fmt.Fprintln(p.out, ui.Info(fmt.Sprintf("Processing %d transactions", unique)))
}

func (p *progress) Completed(hash string, index, total int) {
	if p.spinner != nil {
		p.spinner.SetMessage(fmt.Sprintf("[%d/%d] Completed: %s", index, total, ui.TruncateAddr(hash)))
		if index == total {
			p.spinner.StopWithMsg(ui.Success(fmt.Sprintf("Processed %d transactions", total)))
			p.spinner = nil
		}
		return
	}
	fmt.Fprintf(p.out, "%s %s %s\n",
		ui.Meta(fmt.Sprintf("[%d/%d]", index, total)),
		ui.Meta("Completed:"),
		ui.Addr(hash),
	)
}
