package motor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coremotor "github.com/petbuddy/dispenser/core/motor"
)

func TestULN2003Defaults(t *testing.T) {
	var cfg ULN2003Config
	cfg.SetDefaults()
	assert.Equal(t, 26, cfg.IN1)
	assert.Equal(t, 19, cfg.IN2)
	assert.Equal(t, 13, cfg.IN3)
	assert.Equal(t, 6, cfg.IN4)

	custom := ULN2003Config{IN1: 5, IN2: 7, IN3: 8, IN4: 9}
	custom.SetDefaults()
	assert.Equal(t, 5, custom.IN1)
}

func TestULN2003StepsPerRotation(t *testing.T) {
	m := NewULN2003(ULN2003Config{})
	assert.Equal(t, uint32(2048), m.StepsPerRotation(coremotor.StepFull))
	assert.Equal(t, uint32(4096), m.StepsPerRotation(coremotor.StepHalf))
	assert.Equal(t, uint32(8192), m.StepsPerRotation(coremotor.StepQuarter))
	assert.Equal(t, uint32(16384), m.StepsPerRotation(coremotor.StepEighth))
	assert.Equal(t, uint32(32768), m.StepsPerRotation(coremotor.StepSixteenth))
}

func TestULN2003UnsupportedMode(t *testing.T) {
	m := NewULN2003(ULN2003Config{})
	_, err := m.Run(10, coremotor.Clockwise, coremotor.StepQuarter, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported step mode")
}

func TestReverseSeq(t *testing.T) {
	rev := reverseSeq(uln2003FullSeq)
	require.Len(t, rev, len(uln2003FullSeq))
	assert.Equal(t, uln2003FullSeq[0], rev[len(rev)-1])
	assert.Equal(t, uln2003FullSeq[len(uln2003FullSeq)-1], rev[0])
}

func TestStepDirDefaults(t *testing.T) {
	var cfg StepDirConfig
	cfg.SetDefaults()
	assert.Equal(t, 26, cfg.DirPin)
	assert.Equal(t, 19, cfg.StepPin)
	assert.Equal(t, 13, cfg.SleepPin)
	assert.Equal(t, 6, cfg.ResetPin)
	assert.Equal(t, 17, cfg.EnablePin)
	assert.Equal(t, 1000, cfg.StepSpeedUS)
}

func TestStepDirUnsupportedMode(t *testing.T) {
	m := NewStepDir(StepDirConfig{})
	_, err := m.Run(10, coremotor.Clockwise, coremotor.StepHalf, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported step mode")
}

func TestStepDirStepsPerRotation(t *testing.T) {
	m := NewStepDir(StepDirConfig{})
	assert.Equal(t, uint32(200), m.StepsPerRotation(coremotor.StepFull))
}

func TestRandomFlipInterval(t *testing.T) {
	for i := 0; i < 1000; i++ {
		n := randomFlipInterval()
		require.GreaterOrEqual(t, n, uint32(110))
		require.LessOrEqual(t, n, uint32(200))
	}
}

func TestBackendNames(t *testing.T) {
	assert.Equal(t, "uln2003", NewULN2003(ULN2003Config{}).Name())
	assert.Equal(t, "stepdir", NewStepDir(StepDirConfig{}).Name())
	assert.True(t, NewULN2003(ULN2003Config{}).RequiresPhysicalIO())
	assert.True(t, NewStepDir(StepDirConfig{}).RequiresPhysicalIO())
}
