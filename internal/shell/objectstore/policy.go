package objectstore

import (
	"encoding/json"
	"fmt"
)

// PolicyDocument is an S3 access policy.
type PolicyDocument struct {
	Version   string      `json:"Version"`
	Statement []Statement `json:"Statement"`
}

// Statement is one rule of a PolicyDocument.
type Statement struct {
	Effect   string   `json:"Effect"`
	Action   []string `json:"Action"`
	Resource []string `json:"Resource"`
}

// PolicyName returns the name of the read/write policy of bucket.
func PolicyName(bucket string) string {
	return bucket + "-readwrite"
}

// BucketPolicy returns a policy granting read/write on bucket and its objects.
func BucketPolicy(bucket string) PolicyDocument {
	arn := fmt.Sprintf("arn:aws:s3:::%s", bucket)
	return PolicyDocument{
		Version: "2012-10-17",
		Statement: []Statement{
			{
				Effect: "Allow",
				Action: []string{
					"s3:GetBucketLocation",
					"s3:ListBucket",
					"s3:ListBucketMultipartUploads",
				},
				Resource: []string{arn},
			},
			{
				Effect: "Allow",
				Action: []string{
					"s3:GetObject",
					"s3:PutObject",
					"s3:DeleteObject",
					"s3:AbortMultipartUpload",
					"s3:ListMultipartUploadParts",
				},
				Resource: []string{arn + "/*"},
			},
		},
	}
}

// JSON returns the encoded document.
func (p PolicyDocument) JSON() ([]byte, error) {
	return json.Marshal(p)
}
