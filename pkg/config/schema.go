package config

// Schema is the JSON schema for the reserved top-level keys of a configuration file
const Schema = `{
    "$schema": "http://json-schema.org/draft-07/schema#",
    "type": "object",
    "properties": {
        "target_dir": {
            "type": "string",
            "minLength": 1,
            "description": "Directory where artifacts are written and linked"
        },
        "log_level": {
            "type": "string",
            "enum": ["debug", "info", "warn", "error"]
        },
        "log_format": {
            "type": "string",
            "enum": ["json", "console"]
        },
        "max_concurrent": {
            "type": "integer",
            "minimum": 1
        },
        "timeout": {
            "type": "string",
            "description": "Per-entry timeout as a Go duration, e.g. 90m"
        },
        "strict": {
            "type": "boolean"
        },
        "storage": {
            "type": "object",
            "properties": {
                "destinations": {
                    "type": "array",
                    "items": {
                        "type": "object",
                        "properties": {
                            "name": {
                                "type": "string",
                                "pattern": "^[a-zA-Z0-9_-]+$"
                            },
                            "type": {
                                "type": "string",
                                "enum": ["local", "s3", "backblaze", "ssh"]
                            },
                            "enabled": {
                                "type": "boolean"
                            },
                            "base_dir": {
                                "type": "string"
                            },
                            "options": {
                                "type": "object"
                            }
                        },
                        "required": ["name", "type"]
                    }
                }
            }
        }
    }
}`

// EntrySchema is the JSON schema for a single entry's settings record
const EntrySchema = `{
    "$schema": "http://json-schema.org/draft-07/schema#",
    "type": "object",
    "properties": {
        "use": {
            "type": "string"
        },
        "host": {
            "type": ["string", "number", "null"]
        },
        "port": {
            "type": ["string", "integer", "null"]
        },
        "user": {
            "type": ["string", "number", "null"]
        },
        "password": {
            "type": ["string", "number", "null"]
        },
        "db": {
            "type": ["string", "number", "null"]
        },
        "collection": {
            "type": ["string", "number", "null"]
        },
        "name": {
            "type": "string",
            "minLength": 1
        },
        "format": {
            "type": "string"
        },
        "sed": {
            "type": "array",
            "items": {
                "type": "string"
            }
        },
        "latest": {
            "type": "boolean"
        },
        "upload": {
            "type": "array",
            "items": {
                "type": "string"
            }
        },
        "timeout": {
            "type": "string"
        },
        "strict": {
            "type": "boolean"
        },
        "extra_args": {
            "type": "array",
            "items": {
                "type": "string"
            }
        }
    }
}`
