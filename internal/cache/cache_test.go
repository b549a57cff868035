package cache

import "testing"

func TestParseUsedMemory(t *testing.T) {
	tests := []struct {
		name string
		info string
		want int64
	}{
		{
			name: "typical INFO memory section",
			info: "# Memory\r\nused_memory:1048576\r\nused_memory_human:1.00M\r\nused_memory_rss:2097152\r\n",
			want: 1048576,
		},
		{
			name: "missing field",
			info: "# Memory\r\nmaxmemory:0\r\n",
			want: 0,
		},
		{
			name: "empty",
			info: "",
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parseUsedMemory(tt.info); got != tt.want {
				t.Errorf("parseUsedMemory() = %d, want %d", got, tt.want)
			}
		})
	}
}
