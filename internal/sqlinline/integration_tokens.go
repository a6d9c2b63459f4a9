package sqlinline

const QSelectIntegrationToken = `--sql c44d8cf3-0c86-4da4-9d9c-38d9ac95a769
select token
from integration_tokens
where provider = $1::text;
`

const QUpsertIntegrationToken = `--sql 83ed95df-95fb-4bf6-b0e1-7b7e0b4db4ad
insert into integration_tokens (id, provider, token, properties, created_at, updated_at)
values (gen_random_uuid(), $1::text, $2::text, coalesce($3::jsonb, '{}'::jsonb), now(), now())
on conflict (provider) do update
set token      = excluded.token,
    properties = excluded.properties,
    updated_at = now();
`
