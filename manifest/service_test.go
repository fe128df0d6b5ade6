package manifest_test

import (
	"context"
	"embed"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "github.com/viant/afs/embed"
	"github.com/viant/spawnly/manifest"
)

//go:embed testdata/*
var embedFS embed.FS

func TestServiceLoad(t *testing.T) {
	srv := manifest.New(
		manifest.WithFsOptions(&embedFS),
		manifest.WithBaseURL("embed:///testdata"),
	)
	ctx := context.Background()

	// The .yaml extension is implied when omitted, and a manifest without an
	// explicit name takes it from the file name.
	loaded, err := srv.Load(ctx, "build")
	require.NoError(t, err)
	assert.Equal(t, "build", loaded.Name)
	assert.Equal(t, "embed:///testdata/build.yaml", loaded.Source)
	assert.Equal(t, map[string]string{"BUILD_MODE": "release"}, loaded.Env)
	require.NoError(t, loaded.Validate())

	require.Equal(t, 3, len(loaded.Tasks))
	assert.Equal(t, "prepare", loaded.Tasks[0].Name)
	assert.Equal(t, []string{"mkdir", "-p", "out"}, loaded.Tasks[0].Command)
	assert.Equal(t, "compile", loaded.Tasks[1].Name)
	assert.Equal(t, []string{"cc", "-O2", "-o", "out/app", "main.c"}, loaded.Tasks[1].Command)
	assert.Equal(t, "src", loaded.Tasks[1].Dir)
	assert.Equal(t, map[string]string{"CC": "cc"}, loaded.Tasks[1].Env)
	assert.Equal(t, "task-3", loaded.Tasks[2].Name)
	assert.True(t, loaded.Tasks[2].ContinueOnError)
}

func TestServiceLoadMissing(t *testing.T) {
	srv := manifest.New(
		manifest.WithFsOptions(&embedFS),
		manifest.WithBaseURL("embed:///testdata"),
	)
	_, err := srv.Load(context.Background(), "absent")
	assert.Error(t, err)
}
