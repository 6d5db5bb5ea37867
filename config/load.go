// Package config loads configuration from a YAML file and environment
// variables, then validates it.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/cohesivestack/valgo"
	"gopkg.in/yaml.v3"
)

type loadConfigOptions struct {
	fs     fs.FS
	stderr io.Writer
	exit   func(code int)
}

type LoadConfigOption func(*loadConfigOptions)

// WithFS reads the YAML file from fsys instead of the working directory.
func WithFS(fsys fs.FS) LoadConfigOption {
	return func(o *loadConfigOptions) {
		o.fs = fsys
	}
}

func withExit(stderr io.Writer, exit func(code int)) LoadConfigOption {
	return func(o *loadConfigOptions) {
		o.stderr = stderr
		o.exit = exit
	}
}

type Configurable interface {
	InitDefaults()
	Validation() *valgo.Validation
}

// Load fills out from defaults, then the YAML file, then environment
// variables, and validates the result. Param `yamlFile` can be left empty if
// environment variables are being exclusively used.
func Load(yamlFile string, out Configurable, opts ...LoadConfigOption) error {
	var options loadConfigOptions
	for _, opt := range opts {
		opt(&options)
	}

	out.InitDefaults()

	if yamlFile != "" {
		var file io.ReadCloser
		var err error

		if options.fs != nil {
			file, err = options.fs.Open(yamlFile)
		} else {
			file, err = os.Open(yamlFile)
		}
		if err != nil {
			return fmt.Errorf("open config file: %w", err)
		}
		defer file.Close()

		decoder := yaml.NewDecoder(file)
		decoder.KnownFields(true)
		if err = decoder.Decode(out); err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("decode config file: %w", err)
		}
	}

	if err := env.Parse(out); err != nil {
		return fmt.Errorf("parse config environment variables: %w", err)
	}

	return out.Validation().ToError()
}

// MustLoad calls Load and exits the process with status 1 after printing the
// errors to stderr.
func MustLoad(yamlFile string, out Configurable, opts ...LoadConfigOption) {
	options := loadConfigOptions{
		stderr: os.Stderr,
		exit:   os.Exit,
	}
	for _, opt := range opts {
		opt(&options)
	}

	err := Load(yamlFile, out, opts...)
	if err == nil {
		return
	}

	fmt.Fprintln(options.stderr, "Config errors:")
	var verr *valgo.Error
	if errors.As(err, &verr) {
		for _, valErr := range verr.Errors() {
			fmt.Fprintf(options.stderr, "  %s: %s\n", valErr.Name(), strings.Join(valErr.Messages(), ","))
		}
	} else {
		fmt.Fprintf(options.stderr, "  %s\n", err)
	}
	options.exit(1)
}
