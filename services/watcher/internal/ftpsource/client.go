package ftpsource

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/textproto"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jlaffaye/ftp"

	"github.com/hidrolab/telemetria/services/watcher/internal/models"
)

const (
	candidatePrefix = "H_"
	candidateSuffix = ".dat"

	statusNotLoggedIn = 530
)

// ErrAuth wraps login rejections. Retrying them is pointless.
var ErrAuth = errors.New("ftp authentication failed")

// Config holds the remote store connection settings.
type Config struct {
	Host        string
	Port        int
	User        string
	Password    string
	RootDir     string
	Timeout     time.Duration
	DisableEPSV bool
}

// Addr returns host:port.
func (c Config) Addr() string {
	port := c.Port
	if port == 0 {
		port = 21
	}
	return net.JoinHostPort(c.Host, strconv.Itoa(port))
}

// Client is one authenticated FTP session positioned in the root directory.
// Data connections are always client initiated (passive mode).
type Client struct {
	conn *ftp.ServerConn
}

// Dial connects, logs in and changes into cfg.RootDir ("/" or empty keeps
// the login directory).
func Dial(ctx context.Context, cfg Config) (*Client, error) {
	opts := []ftp.DialOption{ftp.DialWithContext(ctx)}
	if cfg.Timeout > 0 {
		opts = append(opts, ftp.DialWithTimeout(cfg.Timeout))
	}
	if cfg.DisableEPSV {
		opts = append(opts, ftp.DialWithDisabledEPSV(true))
	}

	conn, err := ftp.Dial(cfg.Addr(), opts...)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", cfg.Addr(), err)
	}

	if err := conn.Login(cfg.User, cfg.Password); err != nil {
		_ = conn.Quit()
		if isAuthError(err) {
			return nil, fmt.Errorf("%w: %v", ErrAuth, err)
		}
		return nil, fmt.Errorf("login: %w", err)
	}

	if dir := strings.TrimSpace(cfg.RootDir); dir != "" && dir != "/" {
		if err := conn.ChangeDir(dir); err != nil {
			_ = conn.Quit()
			return nil, fmt.Errorf("change dir %s: %w", dir, err)
		}
	}

	return &Client{conn: conn}, nil
}

// List returns the candidate data files of the current directory sorted by
// name. Servers whose LIST output cannot be parsed fall back to NLST, which
// carries no size or time.
func (c *Client) List(ctx context.Context) ([]models.RemoteFile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var files []models.RemoteFile
	entries, err := c.conn.List("")
	if err == nil {
		for _, e := range entries {
			if e.Type != ftp.EntryTypeFile {
				continue
			}
			files = append(files, models.RemoteFile{Name: e.Name, Size: e.Size, ModTime: e.Time})
		}
	} else {
		names, nlstErr := c.conn.NameList("")
		if nlstErr != nil {
			return nil, fmt.Errorf("list: %w", errors.Join(err, nlstErr))
		}
		for _, name := range names {
			files = append(files, models.RemoteFile{Name: name})
		}
	}

	return FilterCandidates(files), nil
}

// Fetch downloads one file fully into memory.
func (c *Client) Fetch(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	resp, err := c.conn.Retr(name)
	if err != nil {
		return nil, fmt.Errorf("retr %s: %w", name, err)
	}
	defer resp.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, resp); err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return buf.Bytes(), nil
}

// Close ends the session.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Quit()
}

// IsCandidate reports whether name follows the H_*.dat convention.
func IsCandidate(name string) bool {
	return strings.HasPrefix(name, candidatePrefix) && strings.HasSuffix(name, candidateSuffix)
}

// FilterCandidates keeps H_*.dat entries, sorted by name. Paths returned by
// some servers' NLST are reduced to their base name.
func FilterCandidates(files []models.RemoteFile) []models.RemoteFile {
	out := make([]models.RemoteFile, 0, len(files))
	for _, f := range files {
		if i := strings.LastIndex(f.Name, "/"); i >= 0 {
			f.Name = f.Name[i+1:]
		}
		if IsCandidate(f.Name) {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func isAuthError(err error) bool {
	var protoErr *textproto.Error
	return errors.As(err, &protoErr) && protoErr.Code == statusNotLoggedIn
}
