package config

import (
	"os"
	"path/filepath"
	"strings"
)

// tryPaths lists well-known Windows install locations for the game,
// checked in order; the first one that exists on disk wins.
var tryPaths = []string{
	`C:\Program Files (x86)\SquareEnix\FINAL FANTASY XIV - A Realm Reborn`,
	`C:\Program Files (x86)\FINAL FANTASY XIV - A Realm Reborn`,
	`C:\Program Files (x86)\Steam\steamapps\common\FINAL FANTASY XIV Online`,
	`C:\Program Files\FINAL FANTASY XIV - A Realm Reborn`,
	`C:\SquareEnix\FINAL FANTASY XIV - A Realm Reborn`,
}

// wslPrefix is the fixed WSL mount prefix substituted for a Windows path's
// drive letter when probing for a WSL-mounted equivalent. The game is
// conventionally installed on the C: drive, so, like the installer probe
// this is ported from, the mount point is assumed rather than derived from
// the drive letter actually present in the Windows path.
var wslPrefix = []string{"/mnt", "c"}

// sqpackPath is the fixed path, relative to an install root, at which the
// sqpack repositories live.
var sqpackPath = []string{"game", "sqpack"}

// FindInstall probes tryPaths, and each one's WSL-mounted equivalent, for
// the first directory that exists, returning its sqpack root
// ("<install>/game/sqpack"). Reports false if none of them exist.
func FindInstall() (string, bool) {
	for _, p := range tryPaths {
		if path, ok := probe(p); ok {
			return path, true
		}
	}
	return "", false
}

func probe(winPath string) (string, bool) {
	if candidate := sqpackRootOf(winPath); exists(candidate) {
		return candidate, true
	}
	if wsl, ok := toWSLPath(winPath); ok {
		if candidate := sqpackRootOf(wsl); exists(candidate) {
			return candidate, true
		}
	}
	return "", false
}

func sqpackRootOf(installRoot string) string {
	segments := append([]string{installRoot}, sqpackPath...)
	return filepath.Join(segments...)
}

// toWSLPath rewrites a Windows absolute path ("C:\foo\bar") to its
// conventional WSL mount equivalent ("/mnt/c/foo/bar").
func toWSLPath(winPath string) (string, bool) {
	if len(winPath) < 3 || winPath[1] != ':' {
		return "", false
	}
	rest := strings.ReplaceAll(winPath[2:], `\`, "/")
	segments := append(append([]string{}, wslPrefix...), rest)
	return filepath.Join(segments...), true
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
