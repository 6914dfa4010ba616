package pipeline

import "testing"

func TestCompanyFromURL(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://job-boards.greenhouse.io/zeals/jobs/5572548004", "Zeals"},
		{"https://boards.greenhouse.io/acme-robotics/jobs/1", "Acme Robotics"},
		{"https://jobs.lever.co/big-corp/123-abc", "Big Corp"},
		{"https://www.example-labs.com/careers/backend", "Example Labs"},
		{"https://careers.acme.io/jobs", "Careers"},
		{"https://job-boards.greenhouse.io/", DefaultCompany},
		{"not a url", DefaultCompany},
		{"", DefaultCompany},
	}

	for _, tt := range tests {
		if got := CompanyFromURL(tt.url); got != tt.want {
			t.Errorf("CompanyFromURL(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}
