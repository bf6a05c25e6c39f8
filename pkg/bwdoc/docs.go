package bwdoc

// TopicManagerDocumentation describes what the BWDOC topic manager admits.
const TopicManagerDocumentation = `# Bitcoin Writer Topic Manager

Admits document inscription tokens created by Bitcoin Writer.

## Requirements for admission

- The output is a PushDrop token with exactly 8 fields
- Field 0 is the "BWDOC" identifier
- Field 1 is the author's compressed identity key
- Fields 2 and 3 are a valid document id and inscription id
- Field 4 is the positive decimal version number
- Field 5 is the parent inscription id, or "-" for a genesis inscription
- Field 6 is the 32 byte SHA-256 of the version content
- Field 7 is a signature over fields 0-6, linked to the identity key and the locking key
`

// LookupDocumentation describes the queries answered by the BWDOC lookup service.
const LookupDocumentation = `# Bitcoin Writer Lookup Service

Finds sealed document inscriptions indexed from the tm_bitcoin_writer topic.

## Queries

The string query "findAll" returns every indexed inscription output.

An object query filters and paginates:

` + "```json" + `
{
  "documentId": "doc1",
  "inscriptionId": "3f1c2a4e-77aa-4b0e-9c1d-0c7c3a9b8e21",
  "identityKey": "02...",
  "limit": 50,
  "skip": 0,
  "sortOrder": "desc"
}
` + "```" + `

All filters are optional and combined with AND. Set "findAll": true to ignore
filters and page through everything. Results are sorted by admission time,
newest first unless sortOrder is "asc".

## Answer

A freeform answer listing {"txid", "outputIndex"} references to the outputs.
`
