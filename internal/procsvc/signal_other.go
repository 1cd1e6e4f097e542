//go:build !unix

package procsvc

import (
	"errors"
	"os"
	"os/exec"
)

var errUnsupported = errors.New("not supported on this platform")

func configure(*exec.Cmd) {}

func terminate(p *os.Process) error { return p.Kill() }
func suspend(*os.Process) error     { return errUnsupported }
func resume(*os.Process) error      { return errUnsupported }
func kill(p *os.Process) error      { return p.Kill() }
