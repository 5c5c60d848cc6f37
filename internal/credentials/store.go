package credentials

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// DefaultPath is where the users file lives unless configured otherwise.
const DefaultPath = "/etc/rusty_socks_proxy/users.txt"

// ErrStore wraps I/O failures other than a missing file.
var ErrStore = errors.New("credential store")

// Users maps usernames to plaintext passwords. A loaded Users may be shared
// by concurrent sessions and must not be modified.
type Users map[string]string

// Verify reports whether password is exactly the one stored for username.
func (u Users) Verify(username, password string) bool {
	stored, ok := u[username]
	return ok && stored == password
}

// Store reads Users from a file on every Load.
type Store struct {
	path  string
	log   log.FieldLogger
	group singleflight.Group
}

func NewStore(path string, logger log.FieldLogger) *Store {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Store{path: path, log: logger}
}

// Load reads the users file. A missing file is created empty and yields no
// users. Loads that overlap in time share a single read; nothing is kept once
// that read returns.
func (s *Store) Load() (Users, error) {
	v, err, _ := s.group.Do(s.path, func() (any, error) {
		return s.read()
	})
	if err != nil {
		return nil, err
	}
	return v.(Users), nil
}

func (s *Store) read() (Users, error) {
	f, err := os.Open(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		if err := s.create(); err != nil {
			return nil, err
		}
		return Users{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", ErrStore, s.path, err)
	}
	defer f.Close()

	users, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", ErrStore, s.path, err)
	}
	return users, nil
}

func (s *Store) create() error {
	s.log.Infof("users file %s not found, creating an empty one", s.path)

	f, err := os.OpenFile(s.path, os.O_WRONLY|os.O_CREATE, 0o600)
	if err != nil {
		return fmt.Errorf("%w: create %s: %w", ErrStore, s.path, err)
	}
	return f.Close()
}

// Parse reads "username:password" lines from r.
func Parse(r io.Reader) (Users, error) {
	users := Users{}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 4096), 1<<20)
	for sc.Scan() {
		name, pass, ok := strings.Cut(sc.Text(), ":")
		if !ok {
			continue
		}
		users[name] = pass
	}

	return users, sc.Err()
}
