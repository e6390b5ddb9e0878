package commands

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

const TestModeMax = 100

// errDeclined means the user did not confirm a full scrape.
var errDeclined = errors.New("full scrape not confirmed")

type prompter struct {
	in  *bufio.Reader
	out io.Writer
}

func newPrompter(in io.Reader, out io.Writer) prompter {
	return prompter{in: bufio.NewReader(in), out: out}
}

// ask prints question and returns the trimmed answer, or def when the
// answer is empty. EOF counts as an empty answer.
func (p prompter) ask(question, def string) (string, error) {
	if def != "" {
		fmt.Fprintf(p.out, "%s [%s]: ", question, def)
	} else {
		fmt.Fprintf(p.out, "%s: ", question)
	}
	line, err := p.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return def, nil
	}
	return line, nil
}

// chooseMaxResults turns a scraping mode into a result cap, 0 meaning
// everything. Mode "1" is a test run, "2" a full run that needs a "yes",
// "3" a custom cap which is prompted for when custom is not positive.
func chooseMaxResults(p prompter, mode string, custom int) (int, error) {
	switch mode {
	case "1":
		return TestModeMax, nil
	case "2":
		fmt.Fprintln(p.out, "Full scrape mode: this scrapes ALL available results and may take hours.")
		fmt.Fprintln(p.out, "Progress is saved periodically.")
		confirm, err := p.ask("Continue? (yes/no)", "no")
		if err != nil {
			return 0, err
		}
		if strings.ToLower(confirm) != "yes" {
			return 0, errDeclined
		}
		return 0, nil
	case "3":
		if custom > 0 {
			return custom, nil
		}
		answer, err := p.ask("Enter number of results to scrape", "")
		if err != nil {
			return 0, err
		}
		n, err := strconv.Atoi(answer)
		if err != nil || n <= 0 {
			return 0, fmt.Errorf("invalid result count %q", answer)
		}
		return n, nil
	}
	return 0, fmt.Errorf("unknown mode %q, expected 1, 2 or 3", mode)
}

// OutputFilename is the default csv path for a search term.
func OutputFilename(searchTerm string) string {
	safe := strings.NewReplacer(" ", "_", "/", "_").Replace(searchTerm)
	return fmt.Sprintf("gelbeseiten_%s.csv", safe)
}
