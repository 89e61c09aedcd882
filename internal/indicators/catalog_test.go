package indicators

import (
	"errors"
	"testing"

	"github.com/kjstillabower/fred-dashboard-service/internal/models"
)

func TestDefault_HasFiveSeries(t *testing.T) {
	c := Default()
	all := c.All()
	if len(all) != 5 {
		t.Fatalf("len(All()) = %d, want 5", len(all))
	}
	wantIDs := []string{"DFF", "GDPC1", "UNRATE", "CPIAUCSL", "DGS10"}
	for i, id := range wantIDs {
		if all[i].SeriesID != id {
			t.Errorf("All()[%d].SeriesID = %q, want %q", i, all[i].SeriesID, id)
		}
		if all[i].SourceURL != "https://fred.stlouisfed.org/series/"+id {
			t.Errorf("All()[%d].SourceURL = %q", i, all[i].SourceURL)
		}
	}
}

func TestCatalog_Lookup(t *testing.T) {
	c := Default()
	tests := []struct {
		name   string
		in     string
		wantID string
	}{
		{"display name", "Unemployment Rate", "UNRATE"},
		{"series id", "DGS10", "DGS10"},
		{"lowercase id", "cpiaucsl", "CPIAUCSL"},
		{"padded name", "  federal funds rate ", "DFF"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			d, err := c.Lookup(tc.in)
			if err != nil {
				t.Fatalf("Lookup(%q) error = %v", tc.in, err)
			}
			if d.SeriesID != tc.wantID {
				t.Errorf("Lookup(%q).SeriesID = %q, want %q", tc.in, d.SeriesID, tc.wantID)
			}
		})
	}
}

func TestCatalog_Lookup_Unknown(t *testing.T) {
	_, err := Default().Lookup("GNPCA")
	if !errors.Is(err, ErrUnknownIndicator) {
		t.Errorf("Lookup(GNPCA) error = %v, want ErrUnknownIndicator", err)
	}
}

func TestCatalog_AllReturnsCopy(t *testing.T) {
	c := Default()
	all := c.All()
	all[0].Name = "mutated"
	if c.First().Name == "mutated" {
		t.Error("All() exposed internal storage")
	}
}

func TestNewCatalog_RejectsDuplicates(t *testing.T) {
	_, err := NewCatalog([]models.SeriesDescriptor{
		{Name: "A", SeriesID: "X"},
		{Name: "B", SeriesID: "x"},
	})
	if err == nil {
		t.Fatal("NewCatalog() expected duplicate error, got nil")
	}
}
