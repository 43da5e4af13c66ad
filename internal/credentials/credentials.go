// Package credentials supplies the API token: from the on-disk cache when
// present, otherwise by asking the user for a username and password.
package credentials

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/Tiliavir/rsg-workblocks/internal/storage"
)

// Terminal prompts on an input/output pair, hiding the password when the
// input is a terminal.
type Terminal struct {
	in  *bufio.Reader
	fd  int
	tty bool
	out io.Writer
}

// NewTerminal prompts on in and writes prompts to out. If in is an *os.File
// attached to a terminal the password is read without echo.
func NewTerminal(in io.Reader, out io.Writer) *Terminal {
	t := &Terminal{in: bufio.NewReader(in), out: out, fd: -1}
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		t.fd = int(f.Fd())
		t.tty = true
	}
	return t
}

// Prompt asks for a username (empty input selects defaultUsername) and a password.
func (t *Terminal) Prompt(defaultUsername string) (string, string, error) {
	fmt.Fprintf(t.out, "Username [%s]: ", defaultUsername)
	username, err := t.readLine()
	if err != nil {
		return "", "", fmt.Errorf("reading username: %w", err)
	}
	if username == "" {
		username = defaultUsername
	}

	fmt.Fprint(t.out, "Password: ")
	var password string
	if t.tty {
		b, err := term.ReadPassword(t.fd)
		fmt.Fprintln(t.out)
		if err != nil {
			return "", "", fmt.Errorf("reading password: %w", err)
		}
		password = string(b)
	} else {
		password, err = t.readLine()
		if err != nil {
			return "", "", fmt.Errorf("reading password: %w", err)
		}
	}
	return username, password, nil
}

func (t *Terminal) readLine() (string, error) {
	line, err := t.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// Prompter asks the user for credentials.
type Prompter interface {
	Prompt(defaultUsername string) (username, password string, err error)
}

// Provider combines the token cache with interactive prompting.
type Provider struct {
	Cache    *storage.TokenFile
	Prompter Prompter
}

// Load returns the cached token, if any.
func (p *Provider) Load() (string, bool, error) {
	return p.Cache.Load()
}

// Store persists token to the cache.
func (p *Provider) Store(token string) error {
	return p.Cache.Save(token)
}

// Prompt asks the user for credentials.
func (p *Provider) Prompt(defaultUsername string) (string, string, error) {
	if p.Prompter == nil {
		return "", "", errors.New("no cached token and no way to prompt for credentials")
	}
	return p.Prompter.Prompt(defaultUsername)
}
