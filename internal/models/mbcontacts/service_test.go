package mbcontacts

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ============= Setup et Teardown =============

func setupContactsTestDB(t *testing.T) *gorm.DB {
	testDB, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, testDB.AutoMigrate(&Contact{}))
	return testDB
}

func validContact() *Contact {
	return &Contact{
		Name:    "Karim",
		Email:   "karim@example.com",
		Phone:   "+21612345678",
		Service: "website",
		Message: "Je voudrais un site vitrine",
	}
}

// ============= Create =============

func TestCreateSetsPendingStatus(t *testing.T) {
	service := NewService(setupContactsTestDB(t), nil)

	contact := validContact()
	// Le client ne choisit pas son statut
	contact.Status = StatusCompleted

	require.NoError(t, service.Create(contact))
	assert.NotZero(t, contact.ID)
	assert.Equal(t, StatusPending, contact.Status)
	assert.False(t, contact.CreatedAt.IsZero())
}

func TestCreateTrimsAndValidates(t *testing.T) {
	service := NewService(setupContactsTestDB(t), nil)

	contact := validContact()
	contact.Name = "  Karim  "
	contact.Email = " karim@example.com "

	require.NoError(t, service.Create(contact))
	assert.Equal(t, "Karim", contact.Name)
	assert.Equal(t, "karim@example.com", contact.Email)
}

func TestCreateRejectsMissingFields(t *testing.T) {
	service := NewService(setupContactsTestDB(t), nil)

	for _, mutate := range []func(*Contact){
		func(c *Contact) { c.Name = "" },
		func(c *Contact) { c.Email = "   " },
		func(c *Contact) { c.Service = "" },
		func(c *Contact) { c.Message = "" },
	} {
		contact := validContact()
		mutate(contact)
		assert.ErrorIs(t, service.Create(contact), ErrMissingField)
	}
}

// ============= UpdateStatus =============

func TestUpdateStatusValid(t *testing.T) {
	testDB := setupContactsTestDB(t)
	service := NewService(testDB, nil)

	contact := validContact()
	require.NoError(t, service.Create(contact))

	require.NoError(t, service.UpdateStatus(contact.ID, StatusInProgress))

	var stored Contact
	require.NoError(t, testDB.First(&stored, contact.ID).Error)
	assert.Equal(t, StatusInProgress, stored.Status)
}

func TestUpdateStatusRejectsUnknownValue(t *testing.T) {
	testDB := setupContactsTestDB(t)
	service := NewService(testDB, nil)

	contact := validContact()
	require.NoError(t, service.Create(contact))

	err := service.UpdateStatus(contact.ID, "archived")
	assert.ErrorIs(t, err, ErrInvalidStatus)

	// Le statut en base n'a pas bougé
	var stored Contact
	require.NoError(t, testDB.First(&stored, contact.ID).Error)
	assert.Equal(t, StatusPending, stored.Status)
}

func TestUpdateStatusNotFound(t *testing.T) {
	service := NewService(setupContactsTestDB(t), nil)

	err := service.UpdateStatus(999, StatusContacted)
	assert.ErrorIs(t, err, ErrNotFound)
}

// ============= Delete et List =============

func TestDeleteContact(t *testing.T) {
	testDB := setupContactsTestDB(t)
	service := NewService(testDB, nil)

	contact := validContact()
	require.NoError(t, service.Create(contact))
	require.NoError(t, service.Delete(contact.ID))

	var count int64
	require.NoError(t, testDB.Model(&Contact{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)

	assert.ErrorIs(t, service.Delete(contact.ID), ErrNotFound)
}

func TestListNewestFirst(t *testing.T) {
	testDB := setupContactsTestDB(t)
	service := NewService(testDB, nil)

	older := &Contact{Name: "A", Email: "a@example.com", Service: "website",
		Message: "m", Status: StatusPending, CreatedAt: time.Now().Add(-time.Hour)}
	newer := &Contact{Name: "B", Email: "b@example.com", Service: "mobile",
		Message: "m", Status: StatusPending, CreatedAt: time.Now()}
	require.NoError(t, testDB.Create(older).Error)
	require.NoError(t, testDB.Create(newer).Error)

	contacts, err := service.List()
	require.NoError(t, err)
	require.Len(t, contacts, 2)
	assert.Equal(t, "B", contacts[0].Name)
	assert.Equal(t, "A", contacts[1].Name)
}

// ============= Notifier =============

func TestNotifyNewContactSendsQuery(t *testing.T) {
	received := make(chan *http.Request, 1)
	gateway := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		received <- r
		w.WriteHeader(http.StatusOK)
	}))
	defer gateway.Close()

	notifier := NewNotifier(gateway.URL, "+21699999999", "secret", "TechyTak")
	notifier.NotifyNewContact(&Contact{
		Name:    "Karim",
		Email:   "karim@example.com",
		Service: "website",
		Message: "Bonjour",
	})

	select {
	case r := <-received:
		query := r.URL.Query()
		assert.Equal(t, "+21699999999", query.Get("phone"))
		assert.Equal(t, "secret", query.Get("apikey"))
		assert.Contains(t, query.Get("text"), "New contact request from TechyTak website")
		assert.Contains(t, query.Get("text"), "Name: Karim")
		assert.Contains(t, query.Get("text"), "Phone: Not provided")
	case <-time.After(2 * time.Second):
		t.Fatal("la passerelle n'a jamais été appelée")
	}
}

func TestNotifySkippedWithoutCredentials(t *testing.T) {
	called := false
	gateway := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer gateway.Close()

	notifier := NewNotifier(gateway.URL, "", "", "TechyTak")
	notifier.NotifyNewContact(validContact())

	assert.False(t, called)
}

func TestNotifyGatewayErrorSwallowed(t *testing.T) {
	gateway := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer gateway.Close()

	notifier := NewNotifier(gateway.URL, "+21699999999", "bad-key", "TechyTak")

	// Ne doit ni paniquer ni remonter l'erreur
	notifier.NotifyNewContact(validContact())
}
