package parser

import (
	"fmt"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCommaList(t *testing.T) {
	assert.Equal(t, []string{"Acme", "Globex"}, ParseCommaList(" Acme, ,Globex ,"))
	assert.Empty(t, ParseCommaList(""))

	long := strings.TrimSuffix(strings.Repeat("x,", 250), ",")
	assert.Len(t, ParseCommaList(long), MaxListItems)
}

type listQuery struct {
	Status *string  `form:"status"`
	Limit  int      `form:"limit"`
	Cities []string `form:"cities"`
	Active bool     `form:"active"`
	Skip   string
}

func TestParseQuery(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		var q listQuery
		if err := ParseQuery(c, &q); err != nil {
			return c.Status(fiber.StatusBadRequest).SendString(err.Error())
		}
		return c.SendString(fmt.Sprintf("%s|%d|%v|%v", *q.Status, q.Limit, q.Cities, q.Active))
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/?status=pending&limit=5&cities=London,%20Paris&active=true&Skip=x", nil))
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)

	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "pending|5|[London Paris]|true", string(body))
}

func TestParseQuery_BadInt(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		var q listQuery
		if err := ParseQuery(c, &q); err != nil {
			return c.Status(fiber.StatusBadRequest).SendString(err.Error())
		}
		return c.SendStatus(fiber.StatusOK)
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/?limit=many", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestParseQuery_RequiresStructPointer(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		var q listQuery
		return ParseQuery(c, q)
	})
	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
}
