package sqlinline

// Provider API keys written by cmd/apikey.

const QSelectProviderKey = `--sql 1c7e5b93-4a2f-4d08-8e6b-52f9a0c3d7e1
select token
from integration_tokens
where provider = $1::text and token <> ''
`

// QUpsertProviderKey replaces the key and counts rotations in properties.
const QUpsertProviderKey = `--sql e2a94f60-3b1d-47c5-9f08-6d5c1e7b2a84
insert into integration_tokens (provider, token, properties)
values ($1::text, $2::text, coalesce($3::jsonb, '{}'::jsonb))
on conflict (provider) do update set
  token = excluded.token,
  properties = integration_tokens.properties || excluded.properties
    || jsonb_build_object('rotations', coalesce((integration_tokens.properties->>'rotations')::int, 0) + 1),
  updated_at = now()
`
