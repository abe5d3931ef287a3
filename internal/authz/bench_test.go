// Copyright 2026 The OpenTrusty Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package authz

import "testing"

func BenchmarkDecide(b *testing.B) {
	actor := Identity{UserID: "user-123", TenantID: "tenant-456", Role: RoleTenantAdmin}
	target := Target{TenantID: "tenant-456"}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if !Decide(actor, OpProjectUpdate, target).Allowed {
			b.Fatal("expected allow")
		}
	}
}
