package reporters

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jlaffaye/ftp"
	"github.com/rotisserie/eris"

	"github.com/biologyguy/tattle/pkg/report"
)

// FTPReporter uploads report bundles to a drop directory on an FTP server.
// This is the transport for projects that don't want reports on a public
// tracker.
type FTPReporter struct {
	Host     string
	Username string
	Password string
	Dir      string
}

func (r *FTPReporter) Name() string {
	return "ftp"
}

func (r *FTPReporter) connect(ctx context.Context) (*ftp.ServerConn, error) {
	conn, err := ftp.Dial(r.Host, ftp.DialWithContext(ctx), ftp.DialWithTimeout(5*time.Second))
	if err != nil {
		return nil, eris.Wrapf(err, "failed to connect to %s", r.Host)
	}

	err = conn.Login(r.Username, r.Password)
	if err != nil {
		conn.Quit()
		return nil, eris.Wrapf(err, "failed to log in to %s", r.Host)
	}

	return conn, nil
}

func (r *FTPReporter) bundleName(fingerprint string) string {
	name := fmt.Sprintf("error_%s.json.br", fingerprint[:16])
	if r.Dir != "" {
		name = strings.TrimSuffix(r.Dir, "/") + "/" + name
	}
	return name
}

// CheckPrevious lists the drop directory and looks for a bundle carrying the
// same fingerprint prefix.
func (r *FTPReporter) CheckPrevious(ctx context.Context, reportErr *report.Error) (bool, error) {
	conn, err := r.connect(ctx)
	if err != nil {
		return false, err
	}
	defer conn.Quit()

	names, err := conn.NameList(r.Dir)
	if err != nil {
		return false, eris.Wrapf(err, "failed to list %s", r.Dir)
	}

	needle := reportErr.Fingerprint()[:16]
	for _, name := range names {
		if strings.Contains(name, needle) {
			return true, nil
		}
	}

	return false, nil
}

// Report uploads the report bundle. Returns the remote file name.
func (r *FTPReporter) Report(ctx context.Context, rep *report.Report) (string, error) {
	bundle, err := report.EncodeBundle(rep)
	if err != nil {
		return "", err
	}

	conn, err := r.connect(ctx)
	if err != nil {
		return "", err
	}
	defer conn.Quit()

	name := r.bundleName(rep.Error.Fingerprint())
	err = conn.Stor(name, bytes.NewReader(bundle))
	if err != nil {
		return "", eris.Wrapf(err, "failed to upload report to %s", name)
	}

	return name, nil
}
