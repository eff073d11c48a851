// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package main provides build targets for the plant diaries project using
// Mage.
//
// Usage:
//
//	mage build    Compile the plantdiaries binary to bin/
//	mage test     Run all tests
//	mage cover    Run tests with a coverage profile in bin/
//	mage lint     Run golangci-lint
//	mage serve    Build and run the API server
//	mage clean    Remove build artifacts
//	mage install  Install plantdiaries to GOPATH/bin
package main

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binGo      = "go"
	binLint    = "golangci-lint"
	binaryName = "plantdiaries"
	binaryDir  = "bin"
	cmdDir     = "./cmd/plantdiaries"
	versionVar = "github.com/mesh-intelligence/plantdiaries/internal/cli.Version"
)

// ldflags stamps the version from `git describe` when available.
func ldflags() string {
	out, err := sh.Output("git", "describe", "--tags", "--always", "--dirty")
	if err != nil || out == "" {
		return ""
	}
	return "-X " + versionVar + "=" + strings.TrimPrefix(out, "v")
}

// Build compiles the plantdiaries binary to bin/. goheif needs cgo.
func Build() error {
	if err := os.MkdirAll(binaryDir, 0o755); err != nil {
		return err
	}
	env := map[string]string{"CGO_ENABLED": "1"}
	return sh.RunWithV(env, binGo, "build", "-v", "-ldflags", ldflags(),
		"-o", filepath.Join(binaryDir, binaryName), cmdDir)
}

// Test runs all tests with the race detector.
func Test() error {
	return sh.RunV(binGo, "test", "-race", "./...")
}

// Cover runs all tests and writes bin/coverage.out.
func Cover() error {
	if err := os.MkdirAll(binaryDir, 0o755); err != nil {
		return err
	}
	profile := filepath.Join(binaryDir, "coverage.out")
	if err := sh.RunV(binGo, "test", "-coverprofile", profile, "./..."); err != nil {
		return err
	}
	return sh.RunV(binGo, "tool", "cover", "-func", profile)
}

// Lint runs golangci-lint.
func Lint() error {
	return sh.RunV(binLint, "run", "./...")
}

// Serve builds the binary and runs the API server with the default
// configuration.
func Serve() error {
	mg.Deps(Build)
	return sh.RunV(filepath.Join(binaryDir, binaryName), "serve")
}

// Clean removes build artifacts.
func Clean() error {
	if err := os.RemoveAll(binaryDir); err != nil {
		return err
	}
	return sh.RunV(binGo, "clean")
}

// Install builds and copies the binary to GOPATH/bin.
func Install() error {
	mg.Deps(Build)
	gopath, err := sh.Output(binGo, "env", "GOPATH")
	if err != nil {
		return err
	}
	src := filepath.Join(binaryDir, binaryName)
	dst := filepath.Join(gopath, "bin", binaryName)
	return sh.Copy(dst, src)
}
