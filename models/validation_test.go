package models

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boolPtr(b bool) *bool { return &b }
func intPtr(i int) *int    { return &i }

func validOptions() *DeploymentOptions {
	return &DeploymentOptions{
		Org:      "org",
		API:      "api",
		Env:      "test",
		Username: "username",
		Password: "password",
		Revision: "1",
		Override: boolPtr(false),
		Delay:    intPtr(0),
	}
}

func validBundle() *Bundle {
	return &Bundle{Contents: []byte("zip")}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		op       Operation
		opts     func() *DeploymentOptions
		bundle   *Bundle
		expected []string
	}{
		{
			name:   "import valid",
			op:     OpImport,
			opts:   validOptions,
			bundle: validBundle(),
		},
		{
			name: "import ignores env and revision",
			op:   OpImport,
			opts: func() *DeploymentOptions {
				return &DeploymentOptions{Org: "org", API: "api", Username: "u", Password: "p"}
			},
			bundle: validBundle(),
		},
		{
			name: "import missing fields",
			op:   OpImport,
			opts: func() *DeploymentOptions {
				return &DeploymentOptions{API: "api"}
			},
			bundle:   validBundle(),
			expected: []string{"org", "username", "password"},
		},
		{
			name:     "import nil bundle",
			op:       OpImport,
			opts:     validOptions,
			expected: []string{"bundle"},
		},
		{
			name:     "import empty bundle contents",
			op:       OpImport,
			opts:     validOptions,
			bundle:   &Bundle{},
			expected: []string{"bundle.contents"},
		},
		{
			name: "update requires revision",
			op:   OpUpdate,
			opts: func() *DeploymentOptions {
				o := validOptions()
				o.Revision = ""
				return o
			},
			bundle:   validBundle(),
			expected: []string{"revision"},
		},
		{
			name: "activate accepts false override and zero delay",
			op:   OpActivate,
			opts: validOptions,
		},
		{
			name: "activate missing policy",
			op:   OpActivate,
			opts: func() *DeploymentOptions {
				o := validOptions()
				o.Override = nil
				o.Delay = nil
				return o
			},
			expected: []string{"override", "delay"},
		},
		{
			name: "activate negative delay",
			op:   OpActivate,
			opts: func() *DeploymentOptions {
				o := validOptions()
				o.Delay = intPtr(-1)
				return o
			},
			expected: []string{"delay"},
		},
		{
			name: "get deployed revision does not need a revision",
			op:   OpGetDeployedRevision,
			opts: func() *DeploymentOptions {
				o := validOptions()
				o.Revision = ""
				o.Override = nil
				return o
			},
		},
		{
			name: "get deployed revision missing env",
			op:   OpGetDeployedRevision,
			opts: func() *DeploymentOptions {
				o := validOptions()
				o.Env = ""
				return o
			},
			expected: []string{"env"},
		},
		{
			name: "deploy checks activate policy before import",
			op:   OpDeploy,
			opts: func() *DeploymentOptions {
				o := validOptions()
				o.Revision = ""
				o.Delay = nil
				return o
			},
			bundle:   validBundle(),
			expected: []string{"delay"},
		},
		{
			name:     "nil options",
			op:       OpActivate,
			opts:     func() *DeploymentOptions { return nil },
			expected: []string{"options"},
		},
		{
			name:     "nil options and bundle",
			op:       OpUpdate,
			opts:     func() *DeploymentOptions { return nil },
			expected: []string{"options", "bundle"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.op, tt.opts(), tt.bundle)
			if len(tt.expected) == 0 {
				assert.NoError(t, err)
				return
			}

			var verrs ValidationErrors
			require.True(t, errors.As(err, &verrs))
			assert.Equal(t, tt.expected, verrs.Fields())
		})
	}
}

func TestValidateReportsEveryViolation(t *testing.T) {
	err := Validate(OpActivate, &DeploymentOptions{}, nil)

	var verrs ValidationErrors
	require.True(t, errors.As(err, &verrs))
	assert.Len(t, verrs, 8)
	assert.Equal(t, "org is required", verrs[0].Error())
	assert.Contains(t, err.Error(), "multiple validation errors: org is required; api is required")
}

func TestValidateMessages(t *testing.T) {
	opts := validOptions()
	opts.Delay = intPtr(-5)

	err := Validate(OpActivate, opts, nil)
	require.Error(t, err)
	assert.Equal(t, "delay must be at least 0", err.Error())
}

func TestValidateUnknownOperation(t *testing.T) {
	err := Validate(Operation("undeploy"), validOptions(), nil)
	require.Error(t, err)

	var verrs ValidationErrors
	assert.False(t, errors.As(err, &verrs))
}
