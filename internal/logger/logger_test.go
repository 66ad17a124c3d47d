package logger_test

import (
	"testing"

	"github.com/module-linker/bundler/internal/logger"
	"github.com/stretchr/testify/assert"
)

func TestMsgIDs(t *testing.T) {
	for id := logger.MsgID_None; id <= logger.MsgID_END; id++ {
		str := logger.MsgIDToString(id)
		if str == "" {
			continue
		}

		overrides := make(map[logger.MsgID]logger.LogLevel)
		logger.StringToMsgIDs(str, logger.LevelError, overrides)
		if len(overrides) == 0 {
			t.Fatalf("Failed to find message id(s) for the string %q", str)
		}

		for k, v := range overrides {
			assert.Equal(t, str, logger.MsgIDToString(k))
			assert.Equal(t, logger.LevelError, v)
		}
	}
}
