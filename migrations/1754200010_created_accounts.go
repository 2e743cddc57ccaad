package migrations

import (
	"encoding/json"

	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
)

func init() {
	m.Register(func(app core.App) error {
		jsonData := `{
			"id": "sg_accounts1",
			"name": "accounts",
			"type": "base",
			"system": false,
			"fields": [
				{
					"system": false,
					"id": "acctuser01",
					"name": "user_id",
					"type": "text",
					"required": true,
					"presentable": true,
					"unique": true
				},
				{
					"system": false,
					"id": "acctemail1",
					"name": "email",
					"type": "email",
					"required": true,
					"unique": true
				},
				{
					"system": false,
					"id": "acctphone1",
					"name": "phone",
					"type": "text",
					"required": false
				},
				{
					"system": false,
					"id": "acctpwhash",
					"name": "password_hash",
					"type": "text",
					"required": true,
					"hidden": true
				},
				{
					"system": false,
					"id": "acctverify",
					"name": "verified",
					"type": "bool",
					"required": false
				}
			],
			"indexes": [
				"CREATE UNIQUE INDEX idx_accounts_email ON accounts (email)",
				"CREATE UNIQUE INDEX idx_accounts_user_id ON accounts (user_id)"
			],
			"listRule": null,
			"viewRule": null,
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
		collection, err := app.FindCollectionByNameOrId("sg_accounts1")
		if err != nil {
			return err
		}

		return app.Delete(collection)
	})
}
