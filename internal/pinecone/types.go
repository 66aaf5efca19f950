package pinecone

// IndexSpec describes where a serverless index lives.
type IndexSpec struct {
	Serverless *ServerlessSpec `json:"serverless,omitempty"`
}

// ServerlessSpec is the cloud/region placement for a serverless index.
type ServerlessSpec struct {
	Cloud  string `json:"cloud"`
	Region string `json:"region"`
}

// Index is the control-plane index model.
type Index struct {
	Name       string      `json:"name"`
	Dimension  int32       `json:"dimension"`
	Metric     string      `json:"metric"`
	Host       string      `json:"host"`
	VectorType string      `json:"vector_type,omitempty"`
	Spec       IndexSpec   `json:"spec"`
	Status     IndexStatus `json:"status"`
}

// IndexStatus reports index readiness.
type IndexStatus struct {
	Ready bool   `json:"ready"`
	State string `json:"state"`
}

// listIndexesResponse is the control-plane list response.
type listIndexesResponse struct {
	Indexes []Index `json:"indexes"`
}

// createIndexRequest is the control-plane create request.
type createIndexRequest struct {
	Name       string    `json:"name"`
	Dimension  int32     `json:"dimension"`
	Metric     string    `json:"metric"`
	Spec       IndexSpec `json:"spec"`
	VectorType string    `json:"vector_type"`
}

// UpsertVector is one (id, values, metadata) record for the data plane.
type UpsertVector struct {
	ID       string            `json:"id"`
	Values   []float32         `json:"values"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// upsertRequest is the data-plane upsert request.
type upsertRequest struct {
	Vectors []UpsertVector `json:"vectors"`
}

// upsertResponse reports how many vectors were written.
type upsertResponse struct {
	UpsertedCount int `json:"upsertedCount"`
}

// queryRequest is the data-plane similarity query.
type queryRequest struct {
	Vector          []float32 `json:"vector"`
	TopK            int       `json:"topK"`
	IncludeMetadata bool      `json:"includeMetadata"`
}

// QueryMatch is one approximate-nearest-neighbor result.
type QueryMatch struct {
	ID       string            `json:"id"`
	Score    float64           `json:"score"`
	Metadata map[string]string `json:"metadata"`
}

// queryResponse is the data-plane query response.
type queryResponse struct {
	Matches   []QueryMatch `json:"matches"`
	Namespace string       `json:"namespace"`
}
