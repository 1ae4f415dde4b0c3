// Copyright 2021 The sessionx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package sessionx

import (
	"errors"
	"io"
	"io/fs"
	"mime"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"syscall"
)

// DownloadOptions control how a downloaded file is moved into place.
type DownloadOptions uint8

const (
	// CreateIntermediateDirectories creates missing parent directories
	// of the destination.
	CreateIntermediateDirectories DownloadOptions = 1 << iota
	// RemovePreviousFile removes an existing file at the destination.
	// Without it, an existing file makes the move fail on platforms
	// where rename does not replace.
	RemovePreviousFile
)

// A Destination chooses where a downloaded file goes. It receives the
// temporary path the transport wrote and the response, and returns the
// destination path and the options for moving the file there.
type Destination func(tempPath string, resp *http.Response) (string, DownloadOptions)

// DefaultDestinationPath returns the fixed fallback location for a
// downloaded file: the base name of tempPath, prefixed with
// "sessionx_", in the OS temporary directory.
func DefaultDestinationPath(tempPath string) string {
	return filepath.Join(os.TempDir(), "sessionx_"+filepath.Base(tempPath))
}

// DefaultDestination is the Destination used when neither the request
// nor the session configures one. It places the file at
// DefaultDestinationPath with no options.
func DefaultDestination(tempPath string, _ *http.Response) (string, DownloadOptions) {
	return DefaultDestinationPath(tempPath), 0
}

// SuggestedDestination returns a Destination that places the file in
// dir, named after the response's Content-Disposition filename, or
// failing that the last element of the request URL path.
func SuggestedDestination(dir string, opts DownloadOptions) Destination {
	return func(tempPath string, resp *http.Response) (string, DownloadOptions) {
		return filepath.Join(dir, suggestedFilename(tempPath, resp)), opts
	}
}

func suggestedFilename(tempPath string, resp *http.Response) string {
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil {
		if name := filepath.Base(params["filename"]); validName(name) {
			return name
		}
	}
	if resp.Request != nil && resp.Request.URL != nil {
		if name := path.Base(resp.Request.URL.Path); validName(name) {
			return name
		}
	}
	return filepath.Base(tempPath)
}

func validName(name string) bool {
	return name != "" && name != "." && name != ".." && name != "/" && name != string(filepath.Separator)
}

// place moves the file at tempPath to the destination chosen by dst,
// applying the options in order: remove a previous file, create
// intermediate directories, move.
func place(tempPath string, resp *http.Response, dst Destination) (string, error) {
	var dest string
	var opts DownloadOptions
	if resp == nil || dst == nil {
		dest = DefaultDestinationPath(tempPath)
	} else {
		dest, opts = dst(tempPath, resp)
	}

	if opts&RemovePreviousFile != 0 {
		if err := os.Remove(dest); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return dest, err
		}
	}
	if opts&CreateIntermediateDirectories != 0 {
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return dest, err
		}
	}
	return dest, move(tempPath, dest)
}

func move(src, dst string) error {
	err := os.Rename(src, dst)
	if !errors.Is(err, syscall.EXDEV) {
		return err
	}

	// Rename cannot cross file systems.
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if _, err = io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return err
	}
	if err = out.Close(); err != nil {
		_ = os.Remove(dst)
		return err
	}
	return os.Remove(src)
}
