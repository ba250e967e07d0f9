package api

import "github.com/samcharles93/datkit/internal/report"

type ResponseError struct {
	Message string              `json:"message,omitempty"`
	Type    string              `json:"type,omitempty"`
	Param   string              `json:"param,omitempty"`
	Detail  *report.ErrorDetail `json:"detail,omitempty"`
}

type FileObject struct {
	ID        string              `json:"id"`
	Object    string              `json:"object"`
	Name      string              `json:"name,omitempty"`
	Bytes     int                 `json:"bytes"`
	CreatedAt int64               `json:"created_at"`
	Summary   *report.FileSummary `json:"summary"`
	// Duplicates lists chunk ids carried by more than one chunk.
	Duplicates []uint64 `json:"duplicates,omitempty"`
}

type FileList struct {
	Object string       `json:"object"`
	Data   []FileObject `json:"data"`
}

type ChunkObject struct {
	report.ChunkSummary
	// Parent is the index of the chunk the parent id resolves to.
	Parent   *int  `json:"parent,omitempty"`
	Children []int `json:"children,omitempty"`
}

type DeleteFileResp struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Deleted bool   `json:"deleted"`
}
