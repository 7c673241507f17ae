package processors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMavenProcessor_Process(t *testing.T) {
	content := `<?xml version="1.0" encoding="UTF-8"?>
<project xmlns="http://maven.apache.org/POM/4.0.0">
  <version>2.1.0</version>
  <properties>
    <spring.version>6.1.4</spring.version>
  </properties>
  <dependencyManagement>
    <dependencies>
      <dependency>
        <groupId>com.fasterxml.jackson.core</groupId>
        <artifactId>jackson-databind</artifactId>
        <version>2.17.0</version>
      </dependency>
    </dependencies>
  </dependencyManagement>
  <dependencies>
    <dependency>
      <groupId>org.springframework</groupId>
      <artifactId>spring-core</artifactId>
      <version>${spring.version}</version>
    </dependency>
    <dependency>
      <groupId>com.fasterxml.jackson.core</groupId>
      <artifactId>jackson-databind</artifactId>
    </dependency>
    <dependency>
      <groupId>com.example</groupId>
      <artifactId>shared</artifactId>
      <version>${project.version}</version>
      <scope>test</scope>
    </dependency>
  </dependencies>
</project>`

	deps, err := MavenProcessor{}.Process("pom.xml", []byte(content))
	require.NoError(t, err)

	assert.Equal(t, []Dependency{
		{Name: "org.springframework:spring-core", Version: "6.1.4", Ecosystem: EcosystemMaven, Kind: "compile"},
		{Name: "com.fasterxml.jackson.core:jackson-databind", Version: "2.17.0", Ecosystem: EcosystemMaven, Kind: "compile"},
		{Name: "com.example:shared", Version: "2.1.0", Ecosystem: EcosystemMaven, Kind: "test"},
	}, deps)
}

func TestMavenProcessor_Invalid(t *testing.T) {
	_, err := MavenProcessor{}.Process("pom.xml", []byte("<project><dependencies>"))
	assert.Error(t, err)
}
