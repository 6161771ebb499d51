package config

const schemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "token": {"type": "string"},
    "commandPrefix": {"type": "string"},
    "guildId": {"type": "string", "pattern": "^[0-9]*$"},
    "discoverPlugins": {"type": "boolean"},
    "plugins": {
      "type": "object",
      "additionalProperties": {"type": "boolean"}
    },
    "permissions": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["roles", "command", "effect"],
        "properties": {
          "roles": {"type": "array", "items": {"type": "string"}, "minItems": 1},
          "command": {"type": "string", "minLength": 1},
          "channel": {"type": "string"},
          "effect": {"enum": ["allow", "deny"]}
        },
        "additionalProperties": false
      }
    }
  }
}`
