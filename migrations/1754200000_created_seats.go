package migrations

import (
	"encoding/json"

	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
)

func init() {
	m.Register(func(app core.App) error {
		jsonData := `{
			"id": "sg_seats001",
			"name": "seats",
			"type": "base",
			"system": false,
			"fields": [
				{
					"system": false,
					"id": "seatid001",
					"name": "seat_id",
					"type": "text",
					"required": true,
					"presentable": true,
					"unique": true
				},
				{
					"system": false,
					"id": "seatrow01",
					"name": "row",
					"type": "text",
					"required": true
				},
				{
					"system": false,
					"id": "seatnum01",
					"name": "number",
					"type": "number",
					"required": true
				},
				{
					"system": false,
					"id": "seattier1",
					"name": "tier",
					"type": "select",
					"required": true,
					"options": {
						"maxSelect": 1,
						"values": ["vip", "premium", "standard"]
					}
				},
				{
					"system": false,
					"id": "seatprc01",
					"name": "price",
					"type": "number",
					"required": true
				},
				{
					"system": false,
					"id": "seatstat1",
					"name": "status",
					"type": "select",
					"required": true,
					"options": {
						"maxSelect": 1,
						"values": ["available", "booked"]
					}
				},
				{
					"system": false,
					"id": "seatuser1",
					"name": "user_id",
					"type": "text",
					"required": false
				}
			],
			"indexes": [
				"CREATE UNIQUE INDEX idx_seats_seat_id ON seats (seat_id)"
			],
			"listRule": "",
			"viewRule": "",
			"createRule": null,
			"updateRule": null,
			"deleteRule": null
		}`

		collection := &core.Collection{}
		if err := json.Unmarshal([]byte(jsonData), &collection); err != nil {
			return err
		}

		return app.Save(collection)
	}, func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId("sg_seats001")
		if err != nil {
			return err
		}

		return app.Delete(collection)
	})
}
