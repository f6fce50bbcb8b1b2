package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/servicebook/servicebook/internal/app"
	_ "github.com/servicebook/servicebook/internal/testing/guard"
)

func TestWorkerSkipsStartupInTestMode(t *testing.T) {
	app.RefreshTestMode()
	assert.True(t, app.InTestMode())
	assert.NotPanics(t, main)
}
