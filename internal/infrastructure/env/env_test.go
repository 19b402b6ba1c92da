package env

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnvService_Getters(t *testing.T) {
	t.Setenv("AGENT_TEST_STR", "chrome")
	t.Setenv("AGENT_TEST_BOOL", "true")
	t.Setenv("AGENT_TEST_INT", "7")
	t.Setenv("AGENT_TEST_FLOAT", "0.25")
	t.Setenv("AGENT_TEST_BAD", "x")

	e := &EnvService{}

	assert.Equal(t, "chrome", e.Get("AGENT_TEST_STR"))
	assert.Equal(t, "chrome", e.GetWithDefault("AGENT_TEST_STR", "firefox"))
	assert.Equal(t, "firefox", e.GetWithDefault("AGENT_TEST_UNSET", "firefox"))
	assert.True(t, e.GetBool("AGENT_TEST_BOOL", false))
	assert.False(t, e.GetBool("AGENT_TEST_BAD", false))
	assert.Equal(t, 7, e.GetInt("AGENT_TEST_INT", 1))
	assert.Equal(t, 1, e.GetInt("AGENT_TEST_BAD", 1))
	assert.Equal(t, 0.25, e.GetFloat("AGENT_TEST_FLOAT", 0.5))
	assert.Equal(t, 0.5, e.GetFloat("AGENT_TEST_BAD", 0.5))
}

func TestEnvService_Require(t *testing.T) {
	t.Setenv("AGENT_TEST_KEY", "secret")
	e := &EnvService{}

	v, err := e.Require("AGENT_TEST_KEY")
	assert.NoError(t, err)
	assert.Equal(t, "secret", v)

	_, err = e.Require("AGENT_TEST_UNSET")
	assert.ErrorContains(t, err, "AGENT_TEST_UNSET")
}
