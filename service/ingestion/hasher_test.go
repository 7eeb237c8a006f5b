package ingestion

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeSHA1(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want string
	}{
		{
			name: "hello",
			data: []byte("hello"),
			want: "aaf4c61ddcc5e8a2dabede0f3b482cd9aea9434d",
		},
		{
			name: "empty",
			data: []byte{},
			want: "da39a3ee5e6b4b0d3255bfef95601890afd80709",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ComputeSHA1(tt.data))

			// 相同输入必须得到相同指纹
			assert.Equal(t, ComputeSHA1(tt.data), ComputeSHA1(tt.data))
		})
	}
}
