// Package config loads the repository/category definitions an Archive is
// constructed from, and probes well-known install locations when the
// caller has not supplied an explicit path.
package config

import (
	"strings"

	"github.com/spf13/viper"

	"github.com/xivgo/sqpack"
)

// Repository mirrors sqpack.Repository with an optional on-disk path
// override: when Path is empty, it is resolved relative to
// Database.InstallRoot as "<InstallRoot>/game/sqpack/<Name>".
type Repository struct {
	Name string `mapstructure:"name"`
	ID   uint8  `mapstructure:"id"`
	Path string `mapstructure:"path"`
}

// Database is the assembled configuration needed to construct an
// sqpack.Archive: where the install lives, and which repositories it
// exposes.
type Database struct {
	DefaultRepository string       `mapstructure:"default_repository"`
	Repositories       []Repository `mapstructure:"repositories"`
	InstallRoot        string       `mapstructure:"install_root"`
}

const sqpackSubdir = "game/sqpack"

// Resolve turns Database into the Repository slice an sqpack.Archive
// expects, filling in any repository's on-disk path from InstallRoot when
// the repository didn't specify one explicitly.
func (d *Database) Resolve() []sqpack.Repository {
	out := make([]sqpack.Repository, len(d.Repositories))
	for i, r := range d.Repositories {
		path := r.Path
		if path == "" {
			path = strings.Join([]string{d.InstallRoot, sqpackSubdir, r.Name}, "/")
		}
		out[i] = sqpack.Repository{Name: r.Name, ID: r.ID, Path: path}
	}
	return out
}

// Load reads a Database from path (YAML, TOML, JSON — whatever Viper's
// extension sniffing resolves) with SQPACK_-prefixed environment
// variables overriding any key, following the AutomaticEnv/SetEnvPrefix
// pairing idiomatic to Viper-based configuration loaders.
func Load(path string) (*Database, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("SQPACK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("default_repository", "ffxiv")

	if err := v.ReadInConfig(); err != nil {
		return nil, sqpack.NewResourcef(err, "Failed to read config file %q.", path)
	}

	var db Database
	if err := v.Unmarshal(&db); err != nil {
		return nil, sqpack.NewResourcef(err, "Failed to parse config file %q.", path)
	}
	if len(db.Repositories) == 0 {
		return nil, sqpack.NewResourcef(nil, "Failed to read config file %q. No repositories declared.", path)
	}
	return &db, nil
}
