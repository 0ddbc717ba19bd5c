package testing

import (
	"fmt"
	"math/rand"

	"github.com/clipgreet/clipgreet/models"
	"github.com/clipgreet/clipgreet/utils"
)

// TestFixtures provides helper methods for creating test data
type TestFixtures struct {
	DB *TestDB
}

// NewTestFixtures creates a new test fixtures instance
func NewTestFixtures(db *TestDB) *TestFixtures {
	return &TestFixtures{DB: db}
}

// CreateTestCustomer creates an active test customer
func (tf *TestFixtures) CreateTestCustomer() (*models.Customer, error) {
	suffix := rand.Intn(1000000)

	customer := &models.Customer{
		Email:     fmt.Sprintf("jane.doe.%d@example.com", suffix),
		FirstName: "Jane",
		LastName:  "Doe",
		IsActive:  utils.ToPtr(true),
	}

	if err := tf.DB.DB.Create(customer).Error; err != nil {
		return nil, fmt.Errorf("failed to create test customer: %w", err)
	}
	return customer, nil
}

// CreateTestVideo creates an outreach video owned by the customer. The
// status defaults to ready so tracking tests start from a shareable video.
func (tf *TestFixtures) CreateTestVideo(customerID uint, status models.VideoStatus) (*models.Video, error) {
	if status == "" {
		status = models.VideoStatusReady
	}

	video := &models.Video{
		CustomerID: customerID,
		Title:      fmt.Sprintf("Greeting for prospect %d", rand.Intn(1000000)),
		VideoPath:  "videos/test.mp4",
		Status:     status,
	}

	if err := tf.DB.DB.Create(video).Error; err != nil {
		return nil, fmt.Errorf("failed to create test video: %w", err)
	}
	return video, nil
}

// CreateTestEvent appends a raw viewer event directly to the store,
// bypassing the ingestion gateway
func (tf *TestFixtures) CreateTestEvent(videoID uint, sessionID *string, kind models.EventKind, progress *int) (*models.ViewerEvent, error) {
	event := &models.ViewerEvent{
		VideoID:   videoID,
		SessionID: sessionID,
		Kind:      kind,
		Progress:  progress,
	}

	if err := tf.DB.DB.Create(event).Error; err != nil {
		return nil, fmt.Errorf("failed to create test event: %w", err)
	}
	return event, nil
}
