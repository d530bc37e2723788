package testing

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/ptichkin/brooder/models"
	"github.com/ptichkin/brooder/utils"
)

// TestFixtures provides helper methods to seed test data
type TestFixtures struct {
	db *TestDB
}

// NewTestFixtures creates a fixtures helper bound to a test database
func NewTestFixtures(db *TestDB) *TestFixtures {
	return &TestFixtures{db: db}
}

// CreateTestStock inserts an active batch with the given quantities
func (tf *TestFixtures) CreateTestStock(breed string, quantity int, daysAhead int) (*models.StockBatch, error) {
	stock := &models.StockBatch{
		Breed:             breed,
		Incubator:         "TestIncubator",
		Date:              utils.DateOnly(time.Now().AddDate(0, 0, daysAhead)),
		Quantity:          quantity,
		AvailableQuantity: quantity,
		Price:             120.50,
		Status:            models.StockStatusActive,
	}
	if err := tf.db.DB.Create(stock).Error; err != nil {
		return nil, fmt.Errorf("failed to create test stock: %w", err)
	}
	return stock, nil
}

// CreateTestOrder inserts an order against a batch without touching its counters
func (tf *TestFixtures) CreateTestOrder(stock *models.StockBatch, userID int64, quantity int, status models.OrderStatus) (*models.Order, error) {
	order := &models.Order{
		UserID:    userID,
		Phone:     RandomPhone(),
		Breed:     stock.Breed,
		Incubator: stock.Incubator,
		Date:      stock.Date,
		Quantity:  quantity,
		Price:     stock.Price,
		StockID:   stock.ID,
		Status:    status,
	}
	if err := tf.db.DB.Create(order).Error; err != nil {
		return nil, fmt.Errorf("failed to create test order: %w", err)
	}
	return order, nil
}

// CreateTestUser inserts a user row
func (tf *TestFixtures) CreateTestUser(userID int64, fullName string) (*models.User, error) {
	user := &models.User{
		UserID:   userID,
		FullName: fullName,
		Username: fmt.Sprintf("user%d", userID),
		Phone:    RandomPhone(),
	}
	if err := tf.db.DB.Create(user).Error; err != nil {
		return nil, fmt.Errorf("failed to create test user: %w", err)
	}
	return user, nil
}

// CreateTestAdmin inserts a roster entry
func (tf *TestFixtures) CreateTestAdmin(userID int64) (*models.Admin, error) {
	admin := &models.Admin{UserID: userID}
	if err := tf.db.DB.Create(admin).Error; err != nil {
		return nil, fmt.Errorf("failed to create test admin: %w", err)
	}
	return admin, nil
}

// RandomPhone returns a syntactically valid +7 phone number
func RandomPhone() string {
	return fmt.Sprintf("+79%09d", rand.Intn(1000000000))
}
