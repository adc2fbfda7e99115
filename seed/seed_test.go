package seed

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"canteen/logger"
	"canteen/models"
	"canteen/store/memstore"
)

const testSeed = `
users:
  - id: 3
    name: Asha Verma
    email: asha@canteen.local
    password: changeme
food_items:
  - id: 14
    name: veg thali
    price: 100
    category: meals
    stock: 21
  - name: masala chai
    price: 12.5
    category: beverages
    stock: 200
`

func TestParse(t *testing.T) {
	f, err := Parse(strings.NewReader(testSeed))
	require.NoError(t, err)
	require.Len(t, f.Users, 1)
	assert.Equal(t, "changeme", f.Users[0].Password)
	require.Len(t, f.FoodItems, 2)
	assert.Equal(t, models.FoodItem{ID: 14, Name: "veg thali", Price: 100, Category: "meals", Stock: 21}, f.FoodItems[0])
}

func TestParseEmptyAndUnknownFields(t *testing.T) {
	f, err := Parse(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, f.Users)

	_, err = Parse(strings.NewReader("menus: []\n"))
	assert.Error(t, err)
}

func TestApplyIsRepeatable(t *testing.T) {
	f, err := Parse(strings.NewReader(testSeed))
	require.NoError(t, err)
	s := memstore.New(memstore.Options{})
	ctx := context.Background()

	res, err := Apply(ctx, s, f, logger.Discard())
	require.NoError(t, err)
	assert.Equal(t, Result{UsersAdded: 1, FoodItemsAdded: 2}, res)

	chai, err := s.Catalog().LookupByName(ctx, "MASALA CHAI")
	require.NoError(t, err)
	assert.Equal(t, int64(15), chai.ID)
	assert.Equal(t, "Beverages", chai.Category)

	res, err = Apply(ctx, s, f, nil)
	require.NoError(t, err)
	assert.Equal(t, Result{UsersSkipped: 1, FoodItemsSkipped: 2}, res)
}

func TestApplyStopsOnInvalidRows(t *testing.T) {
	s := memstore.New(memstore.Options{})
	f := File{FoodItems: []models.FoodItem{{Name: "ghost", Price: -5, Category: "snacks"}}}

	_, err := Apply(context.Background(), s, f, logger.Discard())
	assert.Error(t, err)
}

func TestBundledSeedLoads(t *testing.T) {
	f, err := LoadFile("canteen.yaml")
	require.NoError(t, err)

	s := memstore.New(memstore.Options{})
	_, err = Apply(context.Background(), s, f, logger.Discard())
	require.NoError(t, err)

	item, err := s.Catalog().Lookup(context.Background(), 14)
	require.NoError(t, err)
	assert.Equal(t, 21, item.Stock)
	assert.Equal(t, 100.0, item.Price)

	sold, err := s.Catalog().Lookup(context.Background(), 9)
	require.NoError(t, err)
	assert.Zero(t, sold.Stock)
}
