// Package firmware downloads and applies firmware images announced by the central system.
package firmware

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
)

type Status string

const (
	StatusIdle               Status = "Idle"
	StatusDownloading        Status = "Downloading"
	StatusDownloaded         Status = "Downloaded"
	StatusDownloadFailed     Status = "DownloadFailed"
	StatusInstalling         Status = "Installing"
	StatusInstalled          Status = "Installed"
	StatusInstallationFailed Status = "InstallationFailed"
)

var ErrNoInstaller = errors.New("no installer configured")

// Updater is the "apply update" collaborator of the charge point.
type Updater interface {
	Download(ctx context.Context, location string, retries int, retryInterval time.Duration) (string, error)
	Install(path string) error
}

// HTTPUpdater fetches images over HTTP into Dir and hands them to Apply.
type HTTPUpdater struct {
	Dir    string
	Client *http.Client
	Apply  func(path string) error
	log    *logrus.Entry
}

func NewHTTPUpdater(dir string, apply func(path string) error, log *logrus.Entry) *HTTPUpdater {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &HTTPUpdater{
		Dir:    dir,
		Client: &http.Client{Timeout: 5 * time.Minute},
		Apply:  apply,
		log:    log.WithField("message", "UpdateFirmware"),
	}
}

// Download tries the location retries+1 times, waiting retryInterval between attempts.
func (u *HTTPUpdater) Download(ctx context.Context, location string, retries int, retryInterval time.Duration) (string, error) {
	target, err := u.target(location)
	if err != nil {
		return "", err
	}
	var lastErr error
	for attempt := 0; attempt <= retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(retryInterval):
			}
		}
		if lastErr = u.downloadFile(ctx, target, location); lastErr == nil {
			u.log.Infof("downloaded %s to %s", location, target)
			return target, nil
		}
		u.log.Warnf("download attempt %d of %s failed: %v", attempt+1, location, lastErr)
	}
	return "", lastErr
}

func (u *HTTPUpdater) Install(path string) error {
	if u.Apply == nil {
		return ErrNoInstaller
	}
	return u.Apply(path)
}

func (u *HTTPUpdater) target(location string) (string, error) {
	parsed, err := url.Parse(location)
	if err != nil {
		return "", fmt.Errorf("firmware location %q: %w", location, err)
	}
	name := path.Base(parsed.Path)
	if name == "." || name == "/" || name == "" {
		name = "firmware.bin"
	}
	if err := os.MkdirAll(u.Dir, 0o755); err != nil {
		return "", err
	}
	return filepath.Join(u.Dir, name), nil
}

func (u *HTTPUpdater) downloadFile(ctx context.Context, filePath, location string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return err
	}
	resp, err := u.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	out, err := os.Create(filePath)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, resp.Body)
	return err
}
