// Copyright 2025 Certen Protocol

package address

import (
	"testing"

	"github.com/OakenKnight/left-curve/pkg/types"
)

func TestDeriveIsDeterministic(t *testing.T) {
	deployer := types.Address{1, 2, 3}
	codeHash := Hash([]byte("some contract bytecode"))
	salt := []byte("s1")

	a1 := Derive(deployer, codeHash, salt)
	a2 := Derive(deployer, codeHash, salt)

	if a1 != a2 {
		t.Errorf("Derive is not deterministic: %s != %s", a1, a2)
	}
}

func TestDeriveDiffersBySalt(t *testing.T) {
	deployer := types.Address{1, 2, 3}
	codeHash := Hash([]byte("some contract bytecode"))

	a1 := Derive(deployer, codeHash, []byte("s1"))
	a2 := Derive(deployer, codeHash, []byte("s2"))

	if a1 == a2 {
		t.Errorf("expected different salts to yield different addresses")
	}
}
