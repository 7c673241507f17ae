package processors

import (
	"testing"

	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const terraformSource = `
terraform {
  required_version = ">= 1.5"
  required_providers {
    aws = {
      source  = "hashicorp/aws"
      version = "~> 5.0"
    }
    random = "~> 3.1"
  }
}

module "lambda_AuthenticateFunction" {
  source      = "./terraform-modules/golang-lambda-function"
  lambda_role_arn = aws_iam_role.lambda.arn
  lambda_permission_source_arn = "${aws_apigatewayv2_api.example_http_api.execution_arn}/*/*/*"
}

module "vpc" {
  source  = "terraform-aws-modules/vpc/aws"
  version = "5.1.2"
}

resource "aws_s3_bucket" "example" {
  bucket = "my-bucket"
}
`

func TestDecodeBlocksKeepsUnevaluatedExpressions(t *testing.T) {
	file, diags := hclparse.NewParser().ParseHCL([]byte(terraformSource), "main.tf")
	require.False(t, diags.HasErrors())

	blocks := DecodeBlocks(file.Body.(*hclsyntax.Body), []byte(terraformSource))
	require.Len(t, blocks, 4)

	lambda := blocks[1]
	assert.Equal(t, "module", lambda.Type)
	assert.Equal(t, []string{"lambda_AuthenticateFunction"}, lambda.Labels)
	assert.Equal(t, "aws_iam_role.lambda.arn", lambda.Attributes["lambda_role_arn"])
	assert.Equal(t, "./terraform-modules/golang-lambda-function", lambda.Attributes["source"])
}

func TestTerraformProcessor_Process(t *testing.T) {
	deps, err := NewTerraformProcessor().Process("main.tf", []byte(terraformSource))
	require.NoError(t, err)

	assert.Equal(t, []Dependency{
		{Name: "hashicorp/aws", Version: "~> 5.0", Ecosystem: EcosystemTerraform, Kind: "provider"},
		{Name: "random", Version: "~> 3.1", Ecosystem: EcosystemTerraform, Kind: "provider"},
		{
			Name:      "./terraform-modules/golang-lambda-function",
			Ecosystem: EcosystemTerraform,
			Kind:      "module",
			Extra:     map[string]any{"module": "lambda_AuthenticateFunction"},
		},
		{
			Name:      "terraform-aws-modules/vpc/aws",
			Version:   "5.1.2",
			Ecosystem: EcosystemTerraform,
			Kind:      "module",
			Extra:     map[string]any{"module": "vpc"},
		},
	}, deps)
}

func TestTerraformProcessor_InvalidHCL(t *testing.T) {
	_, err := NewTerraformProcessor().Process("broken.tf", []byte(`module "x" {`))
	assert.Error(t, err)
}

func TestCtyToGo(t *testing.T) {
	content := `
locals {
  count   = 3
  ratio   = 0.5
  enabled = true
  tags    = ["a", "b"]
}
`
	file, diags := hclparse.NewParser().ParseHCL([]byte(content), "locals.tf")
	require.False(t, diags.HasErrors())
	attrs := DecodeBlocks(file.Body.(*hclsyntax.Body), []byte(content))[0].Attributes

	assert.Equal(t, int64(3), attrs["count"])
	assert.Equal(t, 0.5, attrs["ratio"])
	assert.Equal(t, true, attrs["enabled"])
	assert.Equal(t, []any{"a", "b"}, attrs["tags"])
}
