package parse

import "github.com/matzehuels/figura/pkg/diagram"

// samples are the built-in inputs used for live rendering of empty text.
var samples = map[diagram.Kind]string{
	diagram.KindHierarchy: `Company
  Engineering
    Platform
    Product
  Operations
    Finance
    People`,

	diagram.KindMind: `Launch plan
  Goals
    Reach
    Retention
  Channels
    Email
    Social
  Risks`,

	diagram.KindFlow: `Idea -> Draft -> Review -> Publish
Review -[changes]-> Draft`,

	diagram.KindEntity: `CREATE TABLE users (
  id BIGINT PRIMARY KEY,
  name VARCHAR(64) COMMENT 'display name',
  email VARCHAR(128)
);
CREATE TABLE orders (
  id BIGINT PRIMARY KEY,
  user_id BIGINT REFERENCES users(id),
  total DECIMAL(10,2),
  created_at DATETIME
);`,
}

// Sample returns the built-in sample input for kind, or "" if there is none.
func Sample(kind diagram.Kind) string {
	return samples[kind]
}
