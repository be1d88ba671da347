package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			-- Tenants, properties and the settings the lifecycle engine reads
			CREATE TABLE tenants (
				id UUID PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				settings JSONB NOT NULL DEFAULT '{}',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE TABLE properties (
				id UUID PRIMARY KEY,
				tenant_id UUID NOT NULL REFERENCES tenants(id),
				name VARCHAR(255) NOT NULL,
				timezone VARCHAR(64) NOT NULL DEFAULT 'UTC',
				settings JSONB NOT NULL DEFAULT '{}',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE INDEX idx_properties_tenant_id ON properties(tenant_id);

			CREATE TABLE teams (
				id UUID PRIMARY KEY,
				tenant_id UUID NOT NULL REFERENCES tenants(id),
				name VARCHAR(255) NOT NULL,
				module VARCHAR(50) NOT NULL CHECK (module IN ('leasing', 'residentServices')),
				property_ids TEXT[] NOT NULL DEFAULT '{}',
				inactive BOOLEAN NOT NULL DEFAULT FALSE,
				lease_designate_user_id UUID,
				agents TEXT[] NOT NULL DEFAULT '{}'
			);

			CREATE INDEX idx_teams_property_ids ON teams USING GIN (property_ids);

			CREATE TABLE inventories (
				id UUID PRIMARY KEY,
				tenant_id UUID NOT NULL REFERENCES tenants(id),
				property_id UUID NOT NULL REFERENCES properties(id),
				name VARCHAR(255) NOT NULL,
				month_to_month_rent NUMERIC(12, 2)
			);

			CREATE TABLE lease_terms (
				id UUID PRIMARY KEY,
				tenant_id UUID NOT NULL REFERENCES tenants(id),
				property_id UUID NOT NULL REFERENCES properties(id),
				term_length INT NOT NULL,
				period VARCHAR(20) NOT NULL DEFAULT 'month',
				inactive BOOLEAN NOT NULL DEFAULT FALSE
			);

			CREATE INDEX idx_lease_terms_property_id ON lease_terms(property_id);

			-- Parties: one row per workflow incarnation of a lineage
			CREATE TABLE parties (
				id UUID PRIMARY KEY,
				tenant_id UUID NOT NULL REFERENCES tenants(id),
				workflow_name VARCHAR(50) NOT NULL CHECK (workflow_name IN ('newLease', 'activeLease', 'renewal')),
				workflow_state VARCHAR(50) NOT NULL CHECK (workflow_state IN ('active', 'archived')),
				state VARCHAR(50) NOT NULL,
				seed_party_id UUID REFERENCES parties(id),
				party_group_id UUID NOT NULL,
				assigned_property_id UUID NOT NULL REFERENCES properties(id),
				owner_team_id UUID,
				user_id UUID,
				collaborators TEXT[] NOT NULL DEFAULT '{}',
				teams TEXT[] NOT NULL DEFAULT '{}',
				metadata JSONB NOT NULL DEFAULT '{}',
				archive_date TIMESTAMP WITH TIME ZONE,
				archive_reason_id VARCHAR(100),
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE INDEX idx_parties_tenant_id ON parties(tenant_id);
			CREATE INDEX idx_parties_seed_party_id ON parties(seed_party_id);
			CREATE INDEX idx_parties_party_group_id ON parties(party_group_id);
			CREATE INDEX idx_parties_workflow ON parties(workflow_name, workflow_state);
			CREATE UNIQUE INDEX idx_parties_single_active_workflow ON parties(party_group_id, workflow_name)
				WHERE workflow_state = 'active';

			CREATE TABLE party_members (
				id UUID PRIMARY KEY,
				tenant_id UUID NOT NULL REFERENCES tenants(id),
				party_id UUID NOT NULL REFERENCES parties(id),
				person_id UUID NOT NULL,
				member_type VARCHAR(50) NOT NULL,
				end_date TIMESTAMP WITH TIME ZONE
			);

			CREATE INDEX idx_party_members_party_id ON party_members(party_id);

			CREATE TABLE party_additional_info (
				id UUID PRIMARY KEY,
				tenant_id UUID NOT NULL REFERENCES tenants(id),
				party_id UUID NOT NULL REFERENCES parties(id),
				type VARCHAR(50) NOT NULL,
				info JSONB NOT NULL DEFAULT '{}',
				end_date TIMESTAMP WITH TIME ZONE
			);

			CREATE INDEX idx_party_additional_info_party_id ON party_additional_info(party_id);

			CREATE TABLE quotes (
				id UUID PRIMARY KEY,
				tenant_id UUID NOT NULL REFERENCES tenants(id),
				party_id UUID NOT NULL REFERENCES parties(id),
				inventory_id UUID,
				published_at TIMESTAMP WITH TIME ZONE
			);

			CREATE INDEX idx_quotes_party_id ON quotes(party_id);

			CREATE TABLE leases (
				id UUID PRIMARY KEY,
				tenant_id UUID NOT NULL REFERENCES tenants(id),
				party_id UUID NOT NULL REFERENCES parties(id),
				status VARCHAR(50) NOT NULL CHECK (status IN ('draft', 'submitted', 'executed', 'voided')),
				baseline_data JSONB NOT NULL DEFAULT '{}',
				external_lease_id VARCHAR(255),
				sign_date TIMESTAMP WITH TIME ZONE,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE INDEX idx_leases_party_id ON leases(party_id);
			CREATE INDEX idx_leases_status ON leases(status);

			-- Active lease companion rows, one per ACTIVE_LEASE party
			CREATE TABLE active_lease_workflow_data (
				id UUID PRIMARY KEY,
				tenant_id UUID NOT NULL REFERENCES tenants(id),
				party_id UUID NOT NULL UNIQUE REFERENCES parties(id),
				lease_id UUID REFERENCES leases(id),
				state VARCHAR(50) NOT NULL DEFAULT 'none' CHECK (state IN ('none', 'movingOut')),
				is_extension BOOLEAN NOT NULL DEFAULT FALSE,
				rollover_period VARCHAR(20) NOT NULL DEFAULT 'none' CHECK (rollover_period IN ('none', 'm2m')),
				lease_data JSONB NOT NULL DEFAULT '{}',
				metadata JSONB NOT NULL DEFAULT '{}',
				recurring_charges JSONB NOT NULL DEFAULT '[]',
				concessions JSONB NOT NULL DEFAULT '[]',
				is_imported BOOLEAN NOT NULL DEFAULT FALSE,
				external_lease_id VARCHAR(255),
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				CHECK (NOT (is_extension AND rollover_period = 'm2m'))
			);

			CREATE INDEX idx_active_lease_workflow_data_lease_id ON active_lease_workflow_data(lease_id);
			CREATE INDEX idx_active_lease_workflow_data_inventory ON active_lease_workflow_data((lease_data->>'inventoryId'));

			-- External resident data sync bookkeeping
			CREATE TABLE external_sync_runs (
				id UUID PRIMARY KEY,
				tenant_id UUID NOT NULL REFERENCES tenants(id),
				property_id UUID NOT NULL REFERENCES properties(id),
				status VARCHAR(50) NOT NULL CHECK (status IN ('running', 'succeeded', 'failed')),
				completed_at TIMESTAMP WITH TIME ZONE
			);

			CREATE INDEX idx_external_sync_runs_property ON external_sync_runs(property_id, status, completed_at DESC);

			CREATE TABLE external_sync_records (
				sync_run_id UUID NOT NULL REFERENCES external_sync_runs(id) ON DELETE CASCADE,
				external_primary_id VARCHAR(255) NOT NULL,
				PRIMARY KEY (sync_run_id, external_primary_id)
			);

			-- Exception reports and activity log
			CREATE TABLE exception_reports (
				id UUID PRIMARY KEY,
				tenant_id UUID NOT NULL REFERENCES tenants(id),
				rule_id VARCHAR(100) NOT NULL,
				party_id UUID REFERENCES parties(id),
				property_id UUID REFERENCES properties(id),
				data JSONB NOT NULL DEFAULT '{}',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE INDEX idx_exception_reports_party_id ON exception_reports(party_id);

			CREATE TABLE activity_logs (
				id UUID PRIMARY KEY,
				tenant_id UUID NOT NULL REFERENCES tenants(id),
				party_id UUID,
				entity_type VARCHAR(50) NOT NULL,
				action VARCHAR(50) NOT NULL,
				component VARCHAR(100) NOT NULL,
				details JSONB NOT NULL DEFAULT '{}',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE INDEX idx_activity_logs_party_id ON activity_logs(party_id);
		`,
	}
}
