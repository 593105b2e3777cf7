// Package publish writes rendered snapshots to a directory or an S3 bucket.
//
// A destination is a URL. s3://bucket/prefix writes objects under prefix in
// bucket; file:///path and plain paths write files under a directory.
//
//	p, err := publish.Open("s3://site/previews", publish.S3Config{Region: "eu-west-1"})
//	if err != nil {
//	    return err
//	}
//	err = p.Publish(ctx, "index.html", "text/html; charset=utf-8", body)
//
// S3Config.Endpoint and PathStyle point the client at S3-compatible stores
// such as MinIO.
package publish
