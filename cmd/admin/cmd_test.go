package main

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeResetter struct {
	name, password string
	err            error
}

func (f *fakeResetter) ResetPassword(_ context.Context, name, password string) error {
	f.name, f.password = name, password
	return f.err
}

func setup() (*commandLine, *[]string, *fakeResetter, *bytes.Buffer) {
	var ran []string
	resetter := &fakeResetter{}
	out := &bytes.Buffer{}
	cli := &commandLine{
		migrate: func(command string, args ...string) error {
			if command == "boom" {
				return errors.New("no such command")
			}
			ran = append(ran, append([]string{command}, args...)...)
			return nil
		},
		admins: resetter,
		out:    out,
	}
	return cli, &ran, resetter, out
}

func stubPassword(t *testing.T, pwd string, err error) {
	t.Helper()
	orig := readPasswordFunc
	readPasswordFunc = func(int) ([]byte, error) { return []byte(pwd), err }
	t.Cleanup(func() { readPasswordFunc = orig })
}

func TestCommandLineMigrate(t *testing.T) {
	cli, ran, _, out := setup()

	require.NoError(t, cli.run([]string{"admin", "migrate", "up-to", "3"}))
	assert.Equal(t, []string{"up-to", "3"}, *ran)
	assert.Contains(t, out.String(), "migrate up-to: done")

	assert.ErrorIs(t, cli.run([]string{"admin", "migrate"}), errHelp)
	assert.ErrorContains(t, cli.run([]string{"admin", "migrate", "boom"}), "no such command")
}

func TestCommandLineResetPassword(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		pwd     string
		pwdErr  error
		wantErr error
	}{
		{name: "no command", args: []string{"admin"}, wantErr: errHelp},
		{name: "unknown command", args: []string{"admin", "frobnicate"}, wantErr: errHelp},
		{name: "missing name", args: []string{"admin", "resetpassword"}, wantErr: errHelp},
		{name: "empty password", args: []string{"admin", "resetpassword", "-name", "root"}, pwd: "", wantErr: errHelp},
		{name: "terminal error", args: []string{"admin", "resetpassword", "-name", "root"}, pwdErr: errors.New("not a tty")},
		{name: "ok", args: []string{"admin", "resetpassword", "-name", "root"}, pwd: "s3cret!"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cli, _, resetter, _ := setup()
			stubPassword(t, tc.pwd, tc.pwdErr)

			err := cli.run(tc.args)
			switch {
			case tc.wantErr != nil:
				assert.ErrorIs(t, err, tc.wantErr)
			case tc.pwdErr != nil:
				assert.ErrorIs(t, err, tc.pwdErr)
			default:
				require.NoError(t, err)
				assert.Equal(t, "root", resetter.name)
				assert.Equal(t, "s3cret!", resetter.password)
			}
		})
	}
}
