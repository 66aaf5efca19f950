package db

import "testing"

func TestConvertToMigrateURL(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{
			name: "postgres scheme",
			in:   "postgres://agent:pw@localhost:5432/agent?sslmode=disable",
			want: "pgx5://agent:pw@localhost:5432/agent?sslmode=disable",
		},
		{
			name: "postgresql scheme",
			in:   "postgresql://agent@localhost/agent",
			want: "pgx5://agent@localhost/agent",
		},
		{
			name:    "unsupported scheme",
			in:      "mysql://root@localhost/agent",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := convertToMigrateURL(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("convertToMigrateURL() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("convertToMigrateURL() = %q, want %q", got, tt.want)
			}
		})
	}
}
