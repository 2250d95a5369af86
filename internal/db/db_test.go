package db

import (
	"testing"

	"gorm.io/gorm/logger"
)

func TestGormLogLevel(t *testing.T) {
	tests := []struct {
		level string
		want  logger.LogLevel
	}{
		{"DEBUG", logger.Info},
		{"debug", logger.Info},
		{"INFO", logger.Warn},
		{"warning", logger.Error},
		{"ERROR", logger.Silent},
		{"", logger.Warn},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			if got := gormLogLevel(tt.level); got != tt.want {
				t.Errorf("gormLogLevel(%q) = %v, want %v", tt.level, got, tt.want)
			}
		})
	}
}
