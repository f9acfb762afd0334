package api

const (
	// PingEndpoint is the endpoint for checking the API status
	PingEndpoint = "/ping"
	// QueriesEndpoint is the endpoint for submitting a new query
	QueriesEndpoint = "/queries"
	// QueryEndpoint is the endpoint to get the query info and status
	QueryURLParam = "queryId"
	QueryEndpoint = "/queries/{" + QueryURLParam + "}"
	// QueryProofEndpoint is the endpoint to download the terminal proof
	// of a finished query
	QueryProofEndpoint = "/queries/{" + QueryURLParam + "}/proof"
	// BlocksEndpoint is the endpoint for ingesting a block snapshot and
	// for reading the database coverage
	BlocksEndpoint = "/blocks"
	// BlockEndpoint is the endpoint to get one ingested snapshot
	BlockURLParam = "blockNumber"
	BlockEndpoint = "/blocks/{" + BlockURLParam + "}"
)
