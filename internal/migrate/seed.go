package migrate

import (
	"context"
	"fmt"

	"github.com/lib/pq"

	"campaignhub/internal/models"
	"campaignhub/internal/repository"
)

// seedEmailDomain marks rows created by the Go seeder so Clear can find them
const seedEmailDomain = "@seed.campaignhub.test"

var seedNames = []string{"Amani", "Wanjiru", "Otieno", "Achieng", "Kamau", "Njeri", "Kiprop", "Chebet", "Mutua", "Mwikali", "Omondi", "Adhiambo"}

var seedCampaigns = []models.Campaign{
	{Name: "Festive Sale", Channel: models.ChannelEmail, TargetSegment: models.SegmentAll, Content: "<p>Hi {{ name }}, our festive sale starts today!</p>"},
	{Name: "VIP Early Access", Channel: models.ChannelSMS, TargetSegment: models.SegmentVIP, Content: "Hi {{name}}, as a VIP you get early access this weekend."},
	{Name: "Thank You Note", Channel: models.ChannelEmail, TargetSegment: models.SegmentVIP, Content: "<p>Thank you {{ name }} for being with us.</p>"},
	{Name: "Flash Deal", Channel: models.ChannelSMS, TargetSegment: models.SegmentAll, Content: "{{name}}, 50% off for the next 24 hours only."},
}

var seedSubjects = map[string]string{
	"Festive Sale":   "Our festive sale is live",
	"Thank You Note": "Thank you from all of us",
}

// Seeder inserts demo customers and draft campaigns
type Seeder struct {
	db        repository.DB
	campaigns repository.CampaignRepository
	customers repository.CustomerRepository
}

// NewSeeder creates a Seeder over db
func NewSeeder(db repository.DB) *Seeder {
	return &Seeder{
		db:        db,
		campaigns: repository.NewCampaignRepository(db),
		customers: repository.NewCustomerRepository(db),
	}
}

// Clear removes rows created by a previous seed run
func (s *Seeder) Clear(ctx context.Context) error {
	names := make([]string, 0, len(seedCampaigns))
	for _, c := range seedCampaigns {
		names = append(names, c.Name)
	}
	if _, err := s.db.ExecContext(ctx,
		"DELETE FROM campaigns WHERE name = ANY($1)", pq.Array(names)); err != nil {
		return fmt.Errorf("failed to delete campaigns: %w", err)
	}
	if _, err := s.db.ExecContext(ctx,
		"DELETE FROM customers WHERE email LIKE $1", "%"+seedEmailDomain); err != nil {
		return fmt.Errorf("failed to delete customers: %w", err)
	}
	return nil
}

// Customers inserts count customers with a spread of contacts and order
// counts, so every segment and the skip path have members.
func (s *Seeder) Customers(ctx context.Context, count int) (int, error) {
	for i := 1; i <= count; i++ {
		customer := &models.Customer{TotalOrders: (i * 3) % 11}

		// Some customers have no name, which renders as the default
		if i%6 != 0 {
			customer.Name = strPtr(seedNames[i%len(seedNames)])
		}
		if i%4 != 0 {
			customer.Email = strPtr(fmt.Sprintf("customer%03d%s", i, seedEmailDomain))
		}
		if i%3 != 0 {
			customer.Mobile = strPtr(fmt.Sprintf("+254700010%03d", i))
		}

		if err := s.customers.Create(ctx, customer); err != nil {
			return i - 1, err
		}
	}
	return count, nil
}

// Campaigns inserts up to count draft campaigns and returns them
func (s *Seeder) Campaigns(ctx context.Context, count int) ([]*models.Campaign, error) {
	var created []*models.Campaign
	for i := 0; i < count && i < len(seedCampaigns); i++ {
		campaign := seedCampaigns[i]
		if subject, ok := seedSubjects[campaign.Name]; ok {
			campaign.SubjectLine = strPtr(subject)
		}
		if err := campaign.Validate(); err != nil {
			return created, fmt.Errorf("invalid seed campaign %q: %w", campaign.Name, err)
		}
		if err := s.campaigns.Create(ctx, &campaign); err != nil {
			return created, err
		}
		created = append(created, &campaign)
	}
	return created, nil
}

func strPtr(s string) *string {
	return &s
}
